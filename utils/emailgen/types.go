package emailgen

// DraftRequest describes a single reorder to turn into a supplier email.
type DraftRequest struct {
	ItemName        string   `json:"item_name"`
	CurrentQuantity int      `json:"current_quantity"`
	ReorderQuantity int      `json:"reorder_quantity"`
	SupplierName    string   `json:"supplier_name"`
	Sku             string   `json:"sku,omitempty"`
	UnitPrice       *float64 `json:"unit_price,omitempty"`
	CompanyName     string   `json:"company_name,omitempty"`
	SenderName      string   `json:"sender_name,omitempty"`
}

// DraftResponse is the drafted email. The Email field contains a "Subject: ..."
// line followed by the body. Fallback indicates the deterministic template was
// used because the generation provider was unavailable.
type DraftResponse struct {
	Email    string `json:"email"`
	Fallback bool   `json:"fallback"`
}
