package domain

// EntityRef is the tagged reference from a registration to its entity.
type EntityRef struct {
	Kind EntityKind
	ID   string
}

// LinkedEntity is the inventory record (Item or BaseItem) a barcode quantifies.
type LinkedEntity struct {
	ID           string
	Kind         EntityKind
	Name         string
	PartnerKey   string
	BarcodeCount int
}

// CounterAdjustment is one barcode_count change. Key identifies the committed
// registration change it belongs to, so applying it twice is detectable.
type CounterAdjustment struct {
	Key   string     `json:"key"`
	Kind  EntityKind `json:"kind"`
	ID    string     `json:"id"`
	Delta int        `json:"delta"`
}

func (a CounterAdjustment) Ref() EntityRef {
	return EntityRef{Kind: a.Kind, ID: a.ID}
}
