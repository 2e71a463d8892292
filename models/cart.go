package models

// CartLine is one product in an account's cart. Product ids are unique per cart.
type CartLine struct {
	ProductID string `json:"productId" bson:"productId"`
	Quantity  int    `json:"quantity" bson:"quantity"`
}

// CartResult is returned by cart mutations.
type CartResult struct {
	Message   string     `json:"message"`
	CartItems []CartLine `json:"cart_items"`
}
