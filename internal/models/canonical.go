package models

// CanonicalOrder is the source-agnostic outbound schema consumed by the
// reporting API. Field names follow the downstream wire contract.
type CanonicalOrder struct {
	FZ             string             `json:"fz,omitempty"`
	PurchaseNumber string             `json:"purchaseNumber"`
	URL            string             `json:"url"`
	Title          string             `json:"title"`
	PurchaseType   string             `json:"purchaseType"`
	ProcedureInfo  ProcedureInfo      `json:"procedureInfo"`
	Customer       *CanonicalCustomer `json:"customer,omitempty"`
	ContactPerson  *ContactPerson     `json:"contactPerson,omitempty"`
	Lots           []Lot              `json:"lots,omitempty"`
	Attachments    []Attachment       `json:"attachment,omitempty"`
	ETP            ETP                `json:"ETP"`
	Type           int                `json:"type"`
}

type ProcedureInfo struct {
	EndDate string `json:"endDate"`
}

type CanonicalCustomer struct {
	FullName    string `json:"fullName,omitempty"`
	INN         string `json:"inn,omitempty"`
	KPP         string `json:"kpp,omitempty"`
	FactAddress string `json:"factAddress,omitempty"`
}

type ContactPerson struct {
	FirstName    string `json:"firstName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
	ContactEMail string `json:"contactEMail,omitempty"`
	ContactPhone string `json:"contactPhone,omitempty"`
}

type Lot struct {
	Price                *float64              `json:"price,omitempty"`
	CustomerRequirements []CustomerRequirement `json:"customerRequirements"`
	LotItems             []LotItem             `json:"lotItems,omitempty"`
}

type CustomerRequirement struct {
	KladrPlaces       []KladrPlace `json:"kladrPlaces"`
	ContractGuarantee *float64     `json:"obesp_i,omitempty"`
}

type KladrPlace struct {
	DeliveryPlace string `json:"deliveryPlace"`
}

type LotItem struct {
	Code string `json:"code"`
}

type Attachment struct {
	DocDescription string `json:"docDescription"`
	URL            string `json:"url"`
}

type ETP struct {
	Name string `json:"name"`
}
