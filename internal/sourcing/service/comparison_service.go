package service

import (
	"context"
	"sort"
	"time"

	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/repository"
)

// ComparisonService 跨供应商比价引擎
type ComparisonService struct {
	rfqRepo       *repository.RFQRepository
	quotationRepo *repository.QuotationRepository
}

func NewComparisonService(rfqRepo *repository.RFQRepository, quotationRepo *repository.QuotationRepository) *ComparisonService {
	return &ComparisonService{rfqRepo: rfqRepo, quotationRepo: quotationRepo}
}

// ComparisonMatrix 比价矩阵：行=询价行项，列=参与报价的供应商
type ComparisonMatrix struct {
	RFQID     string               `json:"rfq_id"`
	RFQNumber string               `json:"rfq_number"`
	Title     string               `json:"title"`
	Currency  string               `json:"currency"`
	Suppliers []ComparisonSupplier `json:"suppliers"`
	Rows      []ComparisonRow      `json:"rows"`
}

// ComparisonSupplier 参与比价的供应商及其报价单概要
type ComparisonSupplier struct {
	QuotationID     string     `json:"quotation_id"`
	QuotationNumber string     `json:"quotation_number"`
	SupplierID      string     `json:"supplier_id"`
	SupplierName    string     `json:"supplier_name"`
	TotalAmount     float64    `json:"total_amount"`
	ValidUntil      *time.Time `json:"valid_until"`
}

// ComparisonRow 单条询价行项的横向比价
type ComparisonRow struct {
	RFQItemID   string            `json:"rfq_item_id"`
	Description string            `json:"description"`
	Quantity    float64           `json:"quantity"`
	Unit        string            `json:"unit"`
	SortOrder   int               `json:"sort_order"`
	Offers      []ComparisonOffer `json:"offers"`
}

// ComparisonOffer 某供应商对某行项的报价。Offers按单价升序，
// 并列最低价的全部标记IsLowest
type ComparisonOffer struct {
	QuotationID     string     `json:"quotation_id"`
	QuotationItemID string     `json:"quotation_item_id"`
	SupplierID      string     `json:"supplier_id"`
	SupplierName    string     `json:"supplier_name"`
	UnitPrice       float64    `json:"unit_price"`
	OfferedQuantity float64    `json:"offered_quantity"`
	TotalPrice      float64    `json:"total_price"`
	DeliveryDate    *time.Time `json:"delivery_date"`
	ApprovalStatus  string     `json:"approval_status"`
	IsLowest        bool       `json:"is_lowest"`
}

// BuildMatrix 构建比价矩阵。仅RFQ归属公司可用，只纳入已提交的报价
func (s *ComparisonService) BuildMatrix(ctx context.Context, rfqID, companyID string) (*ComparisonMatrix, error) {
	rfq, err := s.rfqRepo.FindByID(ctx, rfqID)
	if err != nil {
		return nil, translateNotFound(err, "询价单不存在")
	}
	if rfq.CompanyID != companyID {
		return nil, newError(KindNotFound, "询价单不存在")
	}

	quotations, err := s.quotationRepo.FindSubmittedByRFQ(ctx, rfqID)
	if err != nil {
		return nil, err
	}

	matrix := &ComparisonMatrix{
		RFQID:     rfq.ID,
		RFQNumber: rfq.RFQNumber,
		Title:     rfq.Title,
		Currency:  rfq.Currency,
		Suppliers: make([]ComparisonSupplier, 0, len(quotations)),
		Rows:      make([]ComparisonRow, 0, len(rfq.Items)),
	}

	// 行项ID → 每个供应商的报价
	offersByItem := make(map[string][]ComparisonOffer)
	for _, quotation := range quotations {
		supplierName := ""
		if quotation.Supplier != nil {
			supplierName = quotation.Supplier.Name
		}
		matrix.Suppliers = append(matrix.Suppliers, ComparisonSupplier{
			QuotationID:     quotation.ID,
			QuotationNumber: quotation.QuotationNumber,
			SupplierID:      quotation.SupplierID,
			SupplierName:    supplierName,
			TotalAmount:     quotation.TotalAmount,
			ValidUntil:      quotation.ValidUntil,
		})
		for _, item := range quotation.Items {
			if !item.IsActive {
				continue
			}
			offersByItem[item.RFQItemID] = append(offersByItem[item.RFQItemID], ComparisonOffer{
				QuotationID:     quotation.ID,
				QuotationItemID: item.ID,
				SupplierID:      quotation.SupplierID,
				SupplierName:    supplierName,
				UnitPrice:       item.UnitPrice,
				OfferedQuantity: item.OfferedQuantity,
				TotalPrice:      item.TotalPrice,
				DeliveryDate:    item.DeliveryDate,
				ApprovalStatus:  item.ApprovalStatus,
			})
		}
	}

	for _, rfqItem := range rfq.Items {
		row := ComparisonRow{
			RFQItemID:   rfqItem.ID,
			Description: rfqItem.Description,
			Quantity:    rfqItem.Quantity,
			Unit:        rfqItem.Unit,
			SortOrder:   rfqItem.SortOrder,
			Offers:      offersByItem[rfqItem.ID],
		}
		rankOffers(row.Offers)
		matrix.Rows = append(matrix.Rows, row)
	}
	return matrix, nil
}

// rankOffers 按单价升序排列并标记最低价（并列全标）。
// 同价时保持报价提交先后顺序
func rankOffers(offers []ComparisonOffer) {
	if len(offers) == 0 {
		return
	}
	sort.SliceStable(offers, func(i, j int) bool {
		return offers[i].UnitPrice < offers[j].UnitPrice
	})
	lowest := offers[0].UnitPrice
	for i := range offers {
		if offers[i].UnitPrice == lowest {
			offers[i].IsLowest = true
		}
	}
}
