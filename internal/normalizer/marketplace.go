package normalizer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/procsift/procsift/internal/models"
)

// Marketplace listing payload (shared by need and auction orders).
type marketplaceListing struct {
	Number  string `json:"number"`
	Name    string `json:"name"`
	EndDate string `json:"endDate"`
}

type marketplaceFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type marketplaceItem struct {
	OKPD struct {
		Code string `json:"code"`
	} `json:"okpd"`
}

// Marketplace customer payloads nest company attributes.
type marketplaceCustomer struct {
	Company struct {
		FactAddress string `json:"factAddress"`
		INN         string `json:"inn"`
		KPP         string `json:"kpp"`
	} `json:"company"`
}

// Need normalizes marketplace "need" orders (demand listings).
type Need struct {
	etpName string
	docBase string
}

func NewNeed(etpName, docBase string) *Need {
	return &Need{etpName: etpName, docBase: docBase}
}

func (n *Need) Supports(orderType string) bool { return orderType == "need" }

func (n *Need) Normalize(in Input) (*models.CanonicalOrder, error) {
	var listing marketplaceListing
	if err := json.Unmarshal(in.Order.RawPayload, &listing); err != nil {
		return nil, fmt.Errorf("failed to decode listing payload: %w", err)
	}

	var detail struct {
		NMCK          *float64          `json:"nmck"`
		DeliveryPlace string            `json:"deliveryPlace"`
		ContactPerson string            `json:"contactPerson"`
		ContactEmail  string            `json:"contactEmail"`
		ContactPhone  string            `json:"contactPhone"`
		Files         []marketplaceFile `json:"files"`
		Items         []marketplaceItem `json:"items"`
	}
	if err := json.Unmarshal(in.Order.DetailPayload, &detail); err != nil {
		return nil, fmt.Errorf("failed to decode detail payload: %w", err)
	}

	out := &models.CanonicalOrder{
		FZ:             "ЗМО",
		PurchaseNumber: listing.Number,
		URL:            in.Order.URL,
		Title:          listing.Name,
		PurchaseType:   "Закупка по потребности",
		ProcedureInfo:  models.ProcedureInfo{EndDate: listing.EndDate},
		ETP:            models.ETP{Name: n.etpName},
		Type:           2,
	}

	out.Customer = marketplaceCanonicalCustomer(in.Customer)
	out.Attachments = documentAttachments(n.docBase, detail.Files)

	lot := models.Lot{
		Price: detail.NMCK,
		CustomerRequirements: []models.CustomerRequirement{{
			KladrPlaces: []models.KladrPlace{{DeliveryPlace: detail.DeliveryPlace}},
		}},
		LotItems: okpdItems(detail.Items),
	}
	out.Lots = []models.Lot{lot}

	// Contact names are only reported alongside a reachable email or phone.
	if detail.ContactEmail != "" || detail.ContactPhone != "" {
		person := &models.ContactPerson{
			ContactEMail: detail.ContactEmail,
			ContactPhone: detail.ContactPhone,
		}
		tokens := strings.Fields(detail.ContactPerson)
		if len(tokens) >= 1 {
			person.LastName = tokens[0]
		}
		if len(tokens) >= 2 {
			person.FirstName = tokens[1]
		}
		out.ContactPerson = person
	}

	return out, nil
}

// Auction normalizes marketplace "auction" orders (quotation sessions).
type Auction struct {
	etpName string
	docBase string
}

func NewAuction(etpName, docBase string) *Auction {
	return &Auction{etpName: etpName, docBase: docBase}
}

func (a *Auction) Supports(orderType string) bool { return orderType == "auction" }

func (a *Auction) Normalize(in Input) (*models.CanonicalOrder, error) {
	var listing marketplaceListing
	if err := json.Unmarshal(in.Order.RawPayload, &listing); err != nil {
		return nil, fmt.Errorf("failed to decode listing payload: %w", err)
	}

	var detail struct {
		StartCost         *float64 `json:"startCost"`
		ContractGuarantee *float64 `json:"contractGuaranteeAmount"`
		Deliveries        []struct {
			DeliveryPlace string `json:"deliveryPlace"`
		} `json:"deliveries"`
		Files []marketplaceFile `json:"files"`
		Items []marketplaceItem `json:"items"`
	}
	if err := json.Unmarshal(in.Order.DetailPayload, &detail); err != nil {
		return nil, fmt.Errorf("failed to decode detail payload: %w", err)
	}
	if len(detail.Deliveries) == 0 {
		return nil, fmt.Errorf("auction %s has no deliveries", in.Order.OrderID)
	}

	out := &models.CanonicalOrder{
		FZ:             "ЗМО",
		PurchaseNumber: listing.Number,
		URL:            in.Order.URL,
		Title:          listing.Name,
		PurchaseType:   "Котировочная сессия",
		ProcedureInfo:  models.ProcedureInfo{EndDate: listing.EndDate},
		ETP:            models.ETP{Name: a.etpName},
		Type:           2,
	}

	out.Customer = marketplaceCanonicalCustomer(in.Customer)
	out.Attachments = documentAttachments(a.docBase, detail.Files)

	lot := models.Lot{
		Price: detail.StartCost,
		CustomerRequirements: []models.CustomerRequirement{{
			KladrPlaces:       []models.KladrPlace{{DeliveryPlace: detail.Deliveries[0].DeliveryPlace}},
			ContractGuarantee: detail.ContractGuarantee,
		}},
		LotItems: okpdItems(detail.Items),
	}
	out.Lots = []models.Lot{lot}

	return out, nil
}

func marketplaceCanonicalCustomer(c *models.Customer) *models.CanonicalCustomer {
	if c == nil {
		return nil
	}
	var payload marketplaceCustomer
	if err := json.Unmarshal(c.Payload, &payload); err != nil {
		return nil
	}
	company := payload.Company
	if company.FactAddress == "" && company.INN == "" && company.KPP == "" {
		return nil
	}
	return &models.CanonicalCustomer{
		FactAddress: company.FactAddress,
		INN:         company.INN,
		KPP:         company.KPP,
	}
}

func documentAttachments(docBase string, files []marketplaceFile) []models.Attachment {
	var attachments []models.Attachment
	for _, f := range files {
		attachments = append(attachments, models.Attachment{
			DocDescription: f.Name,
			URL:            fmt.Sprintf("%s/newapi/api/FileStorage/Download?id=%s", docBase, f.ID),
		})
	}
	return attachments
}

func okpdItems(items []marketplaceItem) []models.LotItem {
	var out []models.LotItem
	for _, item := range items {
		if item.OKPD.Code == "" {
			continue
		}
		out = append(out, models.LotItem{Code: item.OKPD.Code})
	}
	return out
}
