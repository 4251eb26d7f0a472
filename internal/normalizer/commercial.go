package normalizer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/procsift/procsift/internal/models"
	"github.com/procsift/procsift/internal/region"
)

// commercialDetail is the neutral detail shape stored for attribute-list
// tender portals at ingest time.
type commercialDetail struct {
	Number     string   `json:"number"`
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	EndDate    string   `json:"endDate"`
	Categories []string `json:"categories"`
	Contact    string   `json:"contact"`
	Regions    []string `json:"regions"`
	Documents  []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"documents"`
}

// Commercial normalizes commercial tender-portal orders: composed title,
// "Name <email>" contact strings, free-text region resolution, inline
// document URLs.
type Commercial struct {
	etpName string
	regions *region.Resolver
}

func NewCommercial(etpName string, regions *region.Resolver) *Commercial {
	return &Commercial{etpName: etpName, regions: regions}
}

func (c *Commercial) Supports(orderType string) bool {
	return orderType == "commercial"
}

func (c *Commercial) Normalize(in Input) (*models.CanonicalOrder, error) {
	var detail commercialDetail
	if err := json.Unmarshal(in.Order.DetailPayload, &detail); err != nil {
		return nil, fmt.Errorf("failed to decode detail payload: %w", err)
	}

	out := &models.CanonicalOrder{
		FZ:             "Коммерческие",
		PurchaseNumber: detail.Number,
		URL:            in.Order.URL,
		Title:          composeTitle(detail.Name, detail.Categories),
		PurchaseType:   detail.Type,
		ProcedureInfo:  models.ProcedureInfo{EndDate: detail.EndDate},
		ETP:            models.ETP{Name: c.etpName},
		Type:           2,
	}

	if rc := in.Recognized; rc != nil {
		out.Customer = &models.CanonicalCustomer{
			FullName:    rc.Value,
			INN:         rc.INN,
			KPP:         rc.KPP,
			FactAddress: rc.FactAddress,
		}
	}

	out.ContactPerson = parseContact(detail.Contact)

	for _, doc := range detail.Documents {
		out.Attachments = append(out.Attachments, models.Attachment{
			DocDescription: doc.Name,
			URL:            doc.URL,
		})
	}

	place := ""
	if c.regions != nil {
		place = c.regions.Resolve(detail.Name, detail.Regions...)
	}
	out.Lots = []models.Lot{{
		CustomerRequirements: []models.CustomerRequirement{{
			KladrPlaces: []models.KladrPlace{{DeliveryPlace: place}},
		}},
	}}

	return out, nil
}

// composeTitle appends up to the first two category labels to the name.
func composeTitle(name string, categories []string) string {
	if len(categories) == 0 {
		return name
	}
	if len(categories) > 2 {
		categories = categories[:2]
	}
	return fmt.Sprintf("%s [%s]", name, strings.Join(categories, ", "))
}

// parseContact splits a free-text "Name <email>" contact string. Without the
// angle-bracket separator no contact fields are emitted. The first name
// token is the last name by source convention.
func parseContact(contact string) *models.ContactPerson {
	open := strings.Index(contact, "<")
	if open < 0 {
		return nil
	}

	person := &models.ContactPerson{}
	tokens := strings.Fields(contact[:open])
	if len(tokens) >= 1 {
		person.LastName = tokens[0]
	}
	if len(tokens) >= 2 {
		person.FirstName = tokens[1]
	}

	rest := contact[open+1:]
	if end := strings.Index(rest, ">"); end >= 0 {
		person.ContactEMail = strings.TrimSpace(rest[:end])
	} else {
		person.ContactEMail = strings.TrimSpace(rest)
	}

	if *person == (models.ContactPerson{}) {
		return nil
	}
	return person
}
