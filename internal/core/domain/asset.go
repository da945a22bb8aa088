package domain

// Asset is a technology asset in a client's inventory. Owned by the
// inventory subsystem; read-only input to the correlation engine.
type Asset struct {
	ID           string   `json:"id"`
	ClientID     string   `json:"client_id"`
	Name         string   `json:"name"`
	Vendor       string   `json:"vendor"`       // e.g., "Apache"
	ProductName  string   `json:"product_name"` // e.g., "Tomcat Server"
	Version      string   `json:"version"`      // e.g., "9.0.86"
	Description  string   `json:"description"`
	Technologies []string `json:"technologies,omitempty"`
}

// Vendor is a third-party vendor of a client. Read-only input.
type Vendor struct {
	ID       string `json:"id"`
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
	Website  string `json:"website,omitempty"`
}
