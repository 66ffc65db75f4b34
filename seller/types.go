// Copyright (c) 2025 BVK Chaitanya

package seller

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// StatusNotPlanned selects supplies that are not yet scheduled for
	// delivery.
	StatusNotPlanned = -1

	// StatusAll selects supplies in every status.
	StatusAll = -2
)

// Supply is a seller's planned or in-progress shipment to a warehouse. Only
// PreorderID identifies a supply across list calls; it may be absent.
type Supply struct {
	PreorderID *int64 `json:"preorderId"`
	SupplyID   *int64 `json:"supplyId"`

	StatusID   int64  `json:"statusId"`
	StatusName string `json:"statusName"`

	WarehouseID      int64  `json:"warehouseId"`
	WarehouseMapID   int64  `json:"warehouseMapID"`
	WarehouseName    string `json:"warehouseName"`
	WarehouseAddress string `json:"warehouseAddress"`

	ActualWarehouseID      *int64  `json:"actualWarehouseID"`
	ActualWarehouseMapID   *int64  `json:"actualWarehouseMapID"`
	ActualWarehouseName    string  `json:"actualWarehouseName"`
	ActualWarehouseAddress *string `json:"actualWarehouseAddress"`

	TransitWarehouseID      *int64              `json:"transitWarehouseId"`
	TransitWarehouseMapID   *int64              `json:"transitWarehouseMapID"`
	TransitWarehouseName    *string             `json:"transitWarehouseName"`
	TransitWarehouseAddress *string             `json:"transitWarehouseAddress"`
	TransitCost             decimal.NullDecimal `json:"transitCost"`

	BoxTypeID   int64  `json:"boxTypeId"`
	BoxTypeName string `json:"boxTypeName"`

	CreateDate string  `json:"createDate"`
	ChangeDate string  `json:"changeDate"`
	SupplyDate *string `json:"supplyDate"`
	FactDate   *string `json:"factDate"`

	AcceptanceCost               decimal.Decimal     `json:"acceptanceCost"`
	AcceptanceLiterBase          decimal.Decimal     `json:"acceptanceLiterBase"`
	AcceptanceLiterValue         decimal.Decimal     `json:"acceptanceLiterValue"`
	OldAcceptanceCost            decimal.NullDecimal `json:"oldAcceptanceCost"`
	MonopalletAcceptanceCost     decimal.Decimal     `json:"monopalletAcceptanceCost"`
	PaidAcceptanceCoefficient    decimal.NullDecimal `json:"paidAcceptanceCoefficient"`
	OldPaidAcceptanceCoefficient decimal.NullDecimal `json:"oldPaidAcceptanceCoefficient"`
	TariffPallet                 decimal.NullDecimal `json:"tariffPallet"`
	TariffVolume                 decimal.NullDecimal `json:"tariffVolume"`

	Volume                 *float64 `json:"volume"`
	DetailsQuantity        int64    `json:"detailsQuantity"`
	IncomeQuantity         int64    `json:"incomeQuantity"`
	MonopalletQuantity     *int64   `json:"monopalletQuantity"`
	PassMonopalletQuantity *int64   `json:"passMonopalletQuantity"`
	SupplierBoxAmount      *int64   `json:"supplierBoxAmount"`
	CanShowQuantity        bool     `json:"canShowQuantity"`

	FeedbackAllowed             bool `json:"feedbackAllowed"`
	FeedbackArrangementAllowed  bool `json:"feedbackArrangementAllowed"`
	FeedbackDispatchmentAllowed bool `json:"feedbackDispatchmentAllowed"`
	OldFeedbackAllowed          bool `json:"oldFeedbackAllowed"`
	IsSplitFeedbackForWarehouse bool `json:"isSplitFeedbackForWarehouse"`

	HasBoxes          bool    `json:"hasBoxes"`
	HasPass           bool    `json:"hasPass"`
	HasUnloadProblems bool    `json:"hasUnloadProblems"`
	IsWrongDate       bool    `json:"isWrongDate"`
	RejectReason      *string `json:"rejectReason"`

	SupplierAssignName *string `json:"supplierAssignName"`
	SupplierAssignUUID *string `json:"supplierAssignUUID"`
	UserUID            string  `json:"userUid"`
	VirtualType        *string `json:"virtualType"`
}

// DeliveryAndStorage holds the tariff breakdown for a date. Portal reports
// these values as preformatted strings.
type DeliveryAndStorage struct {
	Expr          string `json:"deliveryAndStorageExpr"`
	DeliveryCoef  string `json:"deliveryCoef"`
	DeliveryBase  string `json:"deliveryValueBase"`
	DeliveryLiter string `json:"deliveryValueLiter"`
	StorageCoef   string `json:"storageCoef"`
	StorageLiter  string `json:"storageLiter"`
	StorageValue  string `json:"storageValue"`
	StorageCut    string `json:"storageVolumeCut"`
}

// Cost is the acceptance cost of a supply on a single date. A negative
// coefficient means the date is not available for booking.
type Cost struct {
	Coefficient decimal.Decimal `json:"coefficient"`
	Cost        decimal.Decimal `json:"cost"`
	Date        string          `json:"date"`

	DeliveryAndStorage DeliveryAndStorage `json:"deliveryAndStorage"`
}

// IsAvailable returns true if the date can be booked.
func (c *Cost) IsAvailable() bool {
	return !c.Coefficient.IsNegative()
}

// ShortDate returns the date without the time-of-day part.
func (c *Cost) ShortDate() string {
	date, _, _ := strings.Cut(c.Date, "T")
	return date
}

type ListSuppliesResult struct {
	Data []*Supply `json:"data"`
}

type ListSuppliesResponse struct {
	Result ListSuppliesResult `json:"result"`
}

type AcceptanceCostsResult struct {
	Costs []*Cost `json:"costs"`
}

type AcceptanceCostsResponse struct {
	Result AcceptanceCostsResult `json:"result"`
}

type rpcRequest struct {
	Params  any    `json:"params"`
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
}

type listSuppliesParams struct {
	PageNumber    int    `json:"pageNumber"`
	PageSize      int    `json:"pageSize"`
	SortBy        string `json:"sortBy"`
	SortDirection string `json:"sortDirection"`
	StatusID      int    `json:"statusId"`
	SearchByID    *int64 `json:"searchById"`
}

type acceptanceCostsParams struct {
	DateFrom   string `json:"dateFrom"`
	DateTo     string `json:"dateTo"`
	PreorderID int64  `json:"preorderID"`
	SupplyID   *int64 `json:"supplyId"`
}
