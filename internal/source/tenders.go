package source

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/procsift/procsift/internal/fetcher"
)

// Attribute codes used by the tender portal's listing API.
const (
	attrCustomer = "tenders_organizer"
	attrEndDate  = "tenders_end_date_accepting_offers"
	attrStatus   = "tenders_status"
	attrType     = "tenders_tender_type"
	attrNumber   = "tenders_tender_oebs_number"
	attrNumber2  = "tenders_number_tenders_on_tenders"
	attrContact  = "tender_responsible"
	attrCategory = "tenders_category"
	attrRegion   = "tenders_region"
	attrDocs     = "tenders_attachments"
)

// OrderTypeCommercial tags records from attribute-list tender portals; the
// commercial normalizer picks them up at dispatch.
const OrderTypeCommercial = "commercial"

// TendersSource harvests an attribute-list tender portal. Listing pages carry
// everything needed, so FetchDetail and FetchCustomer are served from the
// page data without extra requests.
type TendersSource struct {
	name     string
	baseURL  string
	pageSize int
	fetch    *fetcher.Fetcher

	mu        sync.Mutex
	customers map[string]json.RawMessage // keyed by organizer code
}

func NewTendersSource(name, baseURL string, pageSize int, fetch *fetcher.Fetcher) *TendersSource {
	return &TendersSource{
		name:      name,
		baseURL:   baseURL,
		pageSize:  pageSize,
		fetch:     fetch,
		customers: make(map[string]json.RawMessage),
	}
}

func (s *TendersSource) Name() string { return s.name }

func (s *TendersSource) listURL(page int) string {
	// The portal pages from zero and sorts newest-first.
	return fmt.Sprintf(
		"%s/api/v1/tenders?pageSize=%d&page=%d&attributesForSort=tenders_publication_date%%2Cdesc",
		s.baseURL, s.pageSize, page-1,
	)
}

func (s *TendersSource) itemURL(id string) string {
	return fmt.Sprintf("%s/tenders/%s", s.baseURL, id)
}

type tendersListing struct {
	Data       []json.RawMessage `json:"data"`
	TotalPages int               `json:"totalPages"`
}

type tendersItem struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	AttributeCategories []struct {
		Code       string `json:"code"`
		Attributes []struct {
			Code  string          `json:"code"`
			Value json.RawMessage `json:"value"`
		} `json:"attributes"`
	} `json:"attributeCategories"`
}

func (s *TendersSource) FetchPage(ctx context.Context, n int) (*Page, error) {
	body, err := s.fetch.FetchJSON(ctx, s.listURL(n))
	if err != nil {
		return nil, err
	}

	var listing tendersListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("failed to decode listing page: %w", err)
	}

	page := &Page{TotalPages: listing.TotalPages}
	for _, raw := range listing.Data {
		rec, err := s.extractRecord(raw)
		if err != nil {
			// A malformed item skips just that item.
			continue
		}
		page.Records = append(page.Records, rec)
	}
	return page, nil
}

func (s *TendersSource) extractRecord(raw json.RawMessage) (Record, error) {
	var item tendersItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return Record{}, fmt.Errorf("failed to decode item: %w", err)
	}
	if item.ID == "" {
		return Record{}, fmt.Errorf("item has no id")
	}

	var status struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(s.attr(item, attrStatus), &status)

	var endDate string
	_ = json.Unmarshal(s.attr(item, attrEndDate), &endDate)

	number := s.stringAttr(item, attrNumber)
	if number == "" {
		number = s.stringAttr(item, attrNumber2)
	}

	var organizer struct {
		Code string `json:"code"`
	}
	organizerRaw := s.attr(item, attrCustomer)
	_ = json.Unmarshal(organizerRaw, &organizer)
	if organizer.Code != "" {
		s.mu.Lock()
		s.customers[organizer.Code] = append(json.RawMessage(nil), organizerRaw...)
		s.mu.Unlock()
	}

	return Record{
		OrderID:    item.ID,
		OrderType:  OrderTypeCommercial,
		URL:        s.itemURL(item.ID),
		Number:     number,
		StatusCode: status.Code,
		EndDate:    endDate,
		CustomerID: organizer.Code,
		Payload:    raw,
	}, nil
}

// FetchDetail flattens the attribute list into the neutral detail shape the
// commercial normalizer consumes.
func (s *TendersSource) FetchDetail(ctx context.Context, rec Record) (json.RawMessage, error) {
	var item tendersItem
	if err := json.Unmarshal(rec.Payload, &item); err != nil {
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}

	detail := map[string]any{
		"number":  rec.Number,
		"name":    item.Name,
		"endDate": rec.EndDate,
	}

	var tenderType struct {
		Value string `json:"value"`
	}
	_ = json.Unmarshal(s.attr(item, attrType), &tenderType)
	detail["type"] = tenderType.Value

	var categories []struct {
		Value string `json:"value"`
	}
	_ = json.Unmarshal(s.attr(item, attrCategory), &categories)
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Value)
	}
	detail["categories"] = names

	var contact struct {
		Value string `json:"value"`
	}
	_ = json.Unmarshal(s.attr(item, attrContact), &contact)
	detail["contact"] = contact.Value

	var regions []struct {
		Value string `json:"value"`
	}
	_ = json.Unmarshal(s.attr(item, attrRegion), &regions)
	regionNames := make([]string, 0, len(regions))
	for _, r := range regions {
		regionNames = append(regionNames, r.Value)
	}
	detail["regions"] = regionNames

	var docs []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	_ = json.Unmarshal(s.attr(item, attrDocs), &docs)
	detail["documents"] = docs

	return json.Marshal(detail)
}

// FetchCustomer serves the organizer payload cached while paging.
func (s *TendersSource) FetchCustomer(ctx context.Context, customerID string) (string, json.RawMessage, error) {
	s.mu.Lock()
	payload, ok := s.customers[customerID]
	s.mu.Unlock()
	if !ok {
		return "", nil, fmt.Errorf("unknown customer %q", customerID)
	}
	return "", payload, nil
}

func (s *TendersSource) attr(item tendersItem, code string) json.RawMessage {
	if len(item.AttributeCategories) == 0 {
		return nil
	}
	for _, a := range item.AttributeCategories[0].Attributes {
		if a.Code == code {
			return a.Value
		}
	}
	return nil
}

func (s *TendersSource) stringAttr(item tendersItem, code string) string {
	var v string
	_ = json.Unmarshal(s.attr(item, code), &v)
	return v
}
