package domain

type Supplier struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Mobile    string `db:"mobile" json:"mobile"`
	Address   string `db:"address" json:"address"`
	CreatedAt string `db:"created_at" json:"createdAt"`
}
