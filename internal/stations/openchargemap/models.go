package openchargemap

// poi is one Open Charge Map point of interest (compact=false, verbose=false).
type poi struct {
	ID              int           `json:"ID"`
	UUID            string        `json:"UUID"`
	AddressInfo     *addressInfo  `json:"AddressInfo"`
	Connections     []connection  `json:"Connections"`
	OperatorInfo    *operatorInfo `json:"OperatorInfo"`
	GeneralComments string        `json:"GeneralComments"`
}

type addressInfo struct {
	Title           string   `json:"Title"`
	AddressLine1    string   `json:"AddressLine1"`
	AddressLine2    string   `json:"AddressLine2"`
	Town            string   `json:"Town"`
	StateOrProvince string   `json:"StateOrProvince"`
	Postcode        string   `json:"Postcode"`
	Latitude        *float64 `json:"Latitude"`
	Longitude       *float64 `json:"Longitude"`
	Distance        *float64 `json:"Distance"`
	AccessComments  string   `json:"AccessComments"`
}

type connection struct {
	ConnectionType *connectionType `json:"ConnectionType"`
	PowerKW        *float64        `json:"PowerKW"`
	Quantity       int             `json:"Quantity"`
}

type connectionType struct {
	Title string `json:"Title"`
}

type operatorInfo struct {
	Title string `json:"Title"`
}
