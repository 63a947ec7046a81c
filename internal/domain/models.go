package domain

// Status drives dashboard bucketing.
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusSold   Status = "SOLD"
	StatusDraft  Status = "DRAFT"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusSold, StatusDraft:
		return true
	}
	return false
}

// Listing is the sole persisted entity: one resale item with pricing,
// status and descriptive fields. Prices are integer yen. Timestamps are
// unix milliseconds; UpdatedAt >= CreatedAt always.
type Listing struct {
	ID          string `db:"id" json:"id" bson:"_id"`
	OwnerID     string `db:"owner_id" json:"ownerId" bson:"owner_id"`
	Title       string `db:"title" json:"title" bson:"title"`
	Description string `db:"description" json:"description" bson:"description"`
	Price       int64  `db:"price" json:"price" bson:"price"`
	Cost        int64  `db:"cost" json:"cost" bson:"cost"`
	Status      Status `db:"status" json:"status" bson:"status"`
	Category    string `db:"category" json:"category" bson:"category"`
	ImageURL    string `db:"image_url" json:"imageUrl,omitempty" bson:"image_url,omitempty"`
	CreatedAt   int64  `db:"created_at" json:"createdAt" bson:"created_at"`
	UpdatedAt   int64  `db:"updated_at" json:"updatedAt" bson:"updated_at"`
}

// Profit is price minus acquisition cost.
func (l Listing) Profit() int64 { return l.Price - l.Cost }

// Categories is the fixed label set offered by the editor. Used for
// display filtering only; the first entry is the editor default.
var Categories = []string{
	"ファッション",
	"家電・スマホ",
	"ゲーム・ホビー",
	"本・音楽",
	"コスメ・美容",
	"その他",
}

func ValidCategory(s string) bool {
	for _, c := range Categories {
		if c == s {
			return true
		}
	}
	return false
}

// UserStats is an ephemeral read-side projection, recomputed from the
// current listing snapshot and never persisted.
type UserStats struct {
	TotalSales     int64 `json:"totalSales"`
	TotalProfit    int64 `json:"totalProfit"`
	ActiveListings int   `json:"activeListings"`
	SoldCount      int   `json:"soldCount"`
}

// StatusBucket is one bar of the dashboard status chart.
type StatusBucket struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}
