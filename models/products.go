package models

import "time"

const ProductInStock = "IN_STOCK"

// Product is read-only to the checkout core: its price is read at order time
// and frozen into the order.
type Product struct {
	ID                 string    `json:"id" bson:"_id"`
	ProductName        string    `json:"productName" bson:"product_name"`
	ProductDescription string    `json:"product_description" bson:"product_description"`
	Price              float64   `json:"price" bson:"price"`
	Image              string    `json:"image" bson:"image"`
	Status             string    `json:"status" bson:"status"`
	Category           string    `json:"category" bson:"category"`
	CreatedAt          time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Address belongs to one account. Orders keep a formatted copy, so the record
// itself is never rewritten once referenced.
type Address struct {
	ID          string    `json:"id" bson:"_id"`
	UserID      string    `json:"user" bson:"user"`
	Name        string    `json:"name" bson:"name"`
	PhoneNumber string    `json:"phone_number" bson:"phone_number"`
	Country     string    `json:"country" bson:"country"`
	PinCode     string    `json:"pin_code" bson:"pin_code"`
	HouseNo     string    `json:"house_no" bson:"house_no"`
	Area        string    `json:"area" bson:"area"`
	Landmark    string    `json:"landmark" bson:"landmark"`
	City        string    `json:"city" bson:"city"`
	State       string    `json:"state" bson:"state"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}
