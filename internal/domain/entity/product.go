package entity

// Product is the slice of a listing this service needs: who sells it.
type Product struct {
	ID       string  `json:"id" firestore:"id"`
	Name     string  `json:"name" firestore:"name"`
	SellerID string  `json:"seller_id" firestore:"sellerId"`
	Price    float64 `json:"price" firestore:"price"`
	Unit     string  `json:"unit" firestore:"unit"`
	Status   string  `json:"status" firestore:"status"`
}
