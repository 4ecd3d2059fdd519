package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/barcode-registry/internal/adapter/storage"
	"github.com/rl1809/barcode-registry/internal/core/domain"
	"github.com/rl1809/barcode-registry/internal/core/service"
	"github.com/rl1809/barcode-registry/internal/logger"
)

const (
	itemID = "stress-item"
	orgA   = "stress-org-a"
	orgB   = "stress-org-b"
)

func main() {
	redisAddr := flag.String("redis", "localhost:6379", "Redis address")
	mysqlDSN := flag.String("mysql", "root:root@tcp(localhost:3306)/barcodes?parseTime=true", "MySQL DSN")
	requests := flag.Int("n", 50, "concurrent registrations per namespace")
	flag.Parse()

	log, err := logger.New("development", "warn")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect redis", "error", err)
	}
	defer rdb.Close()

	db, err := sql.Open("mysql", *mysqlDSN)
	if err != nil {
		log.Fatal("failed to open mysql", "error", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(50)

	mysqlAdapter := storage.NewMySQLAdapter(db)
	if err := mysqlAdapter.Migrate(ctx); err != nil {
		log.Fatal("migrate failed", "error", err)
	}
	seed(ctx, db, log)

	svc := service.NewBarcodeService(
		mysqlAdapter,
		mysqlAdapter,
		mysqlAdapter,
		storage.NewRedisAdapter(rdb, time.Hour),
		log,
		service.WithReadEntities(storage.NewCachedEntityStore(mysqlAdapter, time.Minute, time.Minute, log)),
	)

	value := "STRESS-" + uuid.New().String()[:8]
	namespaces := []domain.BarcodeRegistration{
		{Value: value, Quantity: 1, LinkedEntityID: itemID, Global: true},
		{Value: value, Quantity: 1, LinkedEntityID: itemID, OrganizationID: orgA},
		{Value: value, Quantity: 1, LinkedEntityID: itemID, OrganizationID: orgB},
	}

	var successCount, duplicateCount, otherCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for _, candidate := range namespaces {
		for i := 0; i < *requests; i++ {
			wg.Add(1)
			go func(reg domain.BarcodeRegistration) {
				defer wg.Done()
				_, err := svc.Create(ctx, uuid.New().String(), reg)
				switch {
				case err == nil:
					successCount.Add(1)
				case errors.Is(err, domain.ErrDuplicateValue):
					duplicateCount.Add(1)
				default:
					otherCount.Add(1)
					log.Error("unexpected error", "error", err)
				}
			}(candidate)
		}
	}

	wg.Wait()
	elapsed := time.Since(start)

	total := len(namespaces) * *requests
	success := successCount.Load()
	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Barcode value:    %s\n", value)
	fmt.Printf("Total Requests:   %d\n", total)
	fmt.Printf("Registered:       %d\n", success)
	fmt.Printf("Duplicates:       %d\n", duplicateCount.Load())
	fmt.Printf("Other errors:     %d\n", otherCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	failed := false
	if int(success) == len(namespaces) {
		fmt.Println("PASS: exactly one registration per namespace")
	} else {
		fmt.Printf("FAIL: expected %d registrations, got %d\n", len(namespaces), success)
		failed = true
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT barcode_count FROM items WHERE id = ?`, itemID).Scan(&count); err != nil {
		log.Fatal("read barcode_count", "error", err)
	}
	fmt.Printf("Final barcode_count: %d\n", count)
	if int(success) == count {
		fmt.Println("PASS: barcode_count matches registrations")
	} else {
		fmt.Printf("FAIL: expected barcode_count %d, got %d\n", success, count)
		failed = true
	}

	if failed {
		os.Exit(1)
	}
}

func seed(ctx context.Context, db *sql.DB, log *logger.Logger) {
	if _, err := db.ExecContext(ctx, `DELETE FROM barcode_registrations WHERE linked_entity_id = ?`, itemID); err != nil {
		log.Fatal("clear registrations", "error", err)
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO items (id, name, partner_key, barcode_count) VALUES (?, 'Stress Item', 'stress', 0)
		ON DUPLICATE KEY UPDATE barcode_count = 0`, itemID); err != nil {
		log.Fatal("seed item", "error", err)
	}
	for _, org := range []string{orgA, orgB} {
		if _, err := db.ExecContext(ctx, `INSERT INTO organizations (id, name) VALUES (?, ?)
			ON DUPLICATE KEY UPDATE name = VALUES(name)`, org, org); err != nil {
			log.Fatal("seed organization", "error", err)
		}
	}
}
