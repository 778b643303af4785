package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gerald-spec/novastock/stockroom/auth"
	"github.com/gerald-spec/novastock/stockroom/schema"
	"github.com/gerald-spec/novastock/utils"
	"github.com/gerald-spec/novastock/utils/emailgen"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProcurementService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
	drafter  emailgen.Drafter
}

func (s *ProcurementService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.Route("/{workspace_id}", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.WorkspaceMemberOnly(s.db))

			r.Get("/orders", s.ListOrders)
			r.Get("/orders/{order_id}", s.GetOrder)

			r.Post("/reorder/draft-email", s.DraftReorderEmail)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.WorkspaceAdminOnly(s.db))

			r.Post("/orders", s.CreateOrder)
			r.Delete("/orders/{order_id}", s.DeleteOrder)
			r.Post("/orders/{order_id}/items", s.AddOrderItem)
			r.Post("/orders/{order_id}/status", s.UpdateOrderStatus)

			r.Post("/reorder", s.Reorder)
		})
	})

	return r
}

type createOrderRequest struct {
	SupplierId   uuid.UUID  `json:"supplier_id"`
	Notes        string     `json:"notes"`
	OrderDate    *time.Time `json:"order_date"`
	ExpectedDate *time.Time `json:"expected_date"`
}

func (s *ProcurementService) CreateOrder(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params createOrderRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	order := schema.PurchaseOrder{
		Id:           uuid.New(),
		WorkspaceId:  workspaceId,
		SupplierId:   params.SupplierId,
		Status:       schema.OrderDraft,
		Notes:        params.Notes,
		OrderDate:    params.OrderDate,
		ExpectedDate: params.ExpectedDate,
		CreatedBy:    &user.Id,
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkSupplierExists(txn, workspaceId, params.SupplierId); err != nil {
			return err
		}

		if result := txn.Create(&order); result.Error != nil {
			slog.Error("sql error creating purchase order", "workspace_id", workspaceId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error creating purchase order: %v", err), GetResponseCode(err))
		return
	}

	ordersCreated.Inc()
	slog.Info("purchase order created", "order_id", order.Id, "workspace_id", workspaceId)

	utils.WriteJsonResponse(w, map[string]interface{}{"order_id": order.Id})
}

type OrderItemInfo struct {
	Id              uuid.UUID  `json:"id"`
	InventoryItemId *uuid.UUID `json:"inventory_item_id"`
	ItemName        string     `json:"item_name"`
	Quantity        int        `json:"quantity"`
	UnitPrice       *float64   `json:"unit_price"`
}

type OrderInfo struct {
	Id           uuid.UUID       `json:"id"`
	SupplierId   uuid.UUID       `json:"supplier_id"`
	SupplierName string          `json:"supplier_name"`
	Status       string          `json:"status"`
	Notes        string          `json:"notes"`
	OrderDate    *time.Time      `json:"order_date"`
	ExpectedDate *time.Time      `json:"expected_date"`
	CreatedBy    *uuid.UUID      `json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
	Items        []OrderItemInfo `json:"items"`
	Total        float64         `json:"total"`
}

func convertToOrderInfo(order *schema.PurchaseOrder) OrderInfo {
	items := make([]OrderItemInfo, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemInfo{
			Id:              item.Id,
			InventoryItemId: item.InventoryItemId,
			ItemName:        item.ItemName,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
		})
	}

	info := OrderInfo{
		Id:           order.Id,
		SupplierId:   order.SupplierId,
		Status:       order.Status,
		Notes:        order.Notes,
		OrderDate:    order.OrderDate,
		ExpectedDate: order.ExpectedDate,
		CreatedBy:    order.CreatedBy,
		CreatedAt:    order.CreatedAt,
		Items:        items,
		Total:        schema.OrderTotal(order.Items),
	}
	if order.Supplier != nil {
		info.SupplierName = order.Supplier.CompanyName
	}
	return info
}

func (s *ProcurementService) ListOrders(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var orders []schema.PurchaseOrder
	result := s.db.Preload("Supplier").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Where("workspace_id = ?", workspaceId).
		Order("created_at desc").
		Find(&orders)
	if result.Error != nil {
		slog.Error("sql error listing purchase orders", "workspace_id", workspaceId, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing purchase orders: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]OrderInfo, 0, len(orders))
	for _, order := range orders {
		infos = append(infos, convertToOrderInfo(&order))
	}
	utils.WriteJsonResponse(w, infos)
}

func (s *ProcurementService) GetOrder(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	orderId, err := utils.URLParamUUID(r, "order_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order, err := schema.GetPurchaseOrder(workspaceId, orderId, s.db, true)
	if err != nil {
		if errors.Is(err, schema.ErrOrderNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("error getting purchase order: %v", err), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToOrderInfo(&order))
}

func (s *ProcurementService) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	orderId, err := utils.URLParamUUID(r, "order_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if _, err := schema.GetPurchaseOrder(workspaceId, orderId, txn, false); err != nil {
			if errors.Is(err, schema.ErrOrderNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		// Line items are owned by the order and removed with it. Deleted
		// explicitly so removal does not depend on foreign key enforcement.
		lineDelete := txn.Where("purchase_order_id = ?", orderId).Delete(&schema.PurchaseOrderItem{})
		if lineDelete.Error != nil {
			slog.Error("sql error deleting purchase order lines", "order_id", orderId, "error", lineDelete.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		result := txn.Delete(&schema.PurchaseOrder{Id: orderId})
		if result.Error != nil {
			slog.Error("sql error deleting purchase order", "order_id", orderId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting purchase order: %v", err), GetResponseCode(err))
		return
	}

	slog.Info("purchase order deleted", "order_id", orderId, "workspace_id", workspaceId)

	utils.WriteSuccess(w)
}

type orderItemRequest struct {
	InventoryItemId *uuid.UUID `json:"inventory_item_id"`
	ItemName        string     `json:"item_name"`
	Quantity        int        `json:"quantity"`
	UnitPrice       *float64   `json:"unit_price"`
}

// appendOrderItem resolves a line item request against the catalog and inserts
// it at the next position. Name and price are copied from the catalog entry
// when omitted so the line survives later catalog edits.
func appendOrderItem(txn *gorm.DB, workspaceId, orderId uuid.UUID, params orderItemRequest, position int) (uuid.UUID, error) {
	item := schema.PurchaseOrderItem{
		Id:              uuid.New(),
		PurchaseOrderId: orderId,
		InventoryItemId: params.InventoryItemId,
		ItemName:        params.ItemName,
		Quantity:        params.Quantity,
		UnitPrice:       params.UnitPrice,
		Position:        position,
	}

	if params.InventoryItemId != nil {
		catalogItem, err := schema.GetInventoryItem(workspaceId, *params.InventoryItemId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrItemNotFound) {
				return uuid.Nil, CodedError(err, http.StatusNotFound)
			}
			return uuid.Nil, CodedError(err, http.StatusInternalServerError)
		}

		if item.ItemName == "" {
			item.ItemName = catalogItem.Name
		}
		if item.UnitPrice == nil {
			item.UnitPrice = catalogItem.UnitPrice
		}
		if item.Quantity == 0 {
			item.Quantity = catalogItem.DraftOrderQuantity()
		}
	}

	if item.ItemName == "" {
		return uuid.Nil, CodedError(errors.New("order line item_name must not be empty"), http.StatusUnprocessableEntity)
	}
	if item.Quantity < 1 {
		return uuid.Nil, CodedError(fmt.Errorf("order line quantity must be at least 1, got %v", item.Quantity), http.StatusUnprocessableEntity)
	}
	if item.UnitPrice != nil && *item.UnitPrice < 0 {
		return uuid.Nil, CodedError(fmt.Errorf("order line unit_price must not be negative, got %v", *item.UnitPrice), http.StatusUnprocessableEntity)
	}

	if result := txn.Create(&item); result.Error != nil {
		slog.Error("sql error creating purchase order line", "order_id", orderId, "error", result.Error)
		return uuid.Nil, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	return item.Id, nil
}

func nextLinePosition(txn *gorm.DB, orderId uuid.UUID) (int, error) {
	var count int64
	result := txn.Model(&schema.PurchaseOrderItem{}).Where("purchase_order_id = ?", orderId).Count(&count)
	if result.Error != nil {
		slog.Error("sql error counting purchase order lines", "order_id", orderId, "error", result.Error)
		return 0, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}
	return int(count), nil
}

func (s *ProcurementService) AddOrderItem(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	orderId, err := utils.URLParamUUID(r, "order_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params orderItemRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	var lineId uuid.UUID

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if _, err := schema.GetPurchaseOrder(workspaceId, orderId, txn, false); err != nil {
			if errors.Is(err, schema.ErrOrderNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		position, err := nextLinePosition(txn, orderId)
		if err != nil {
			return err
		}

		lineId, err = appendOrderItem(txn, workspaceId, orderId, params, position)
		return err
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error adding order line: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, map[string]interface{}{"order_item_id": lineId})
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

func (s *ProcurementService) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	orderId, err := utils.URLParamUUID(r, "order_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params updateOrderStatusRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if err := schema.CheckValidOrderStatus(params.Status); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if _, err := schema.GetPurchaseOrder(workspaceId, orderId, txn, false); err != nil {
			if errors.Is(err, schema.ErrOrderNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		result := txn.Model(&schema.PurchaseOrder{Id: orderId}).Update("status", params.Status)
		if result.Error != nil {
			slog.Error("sql error updating purchase order status", "order_id", orderId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating order status: %v", err), GetResponseCode(err))
		return
	}

	slog.Info("purchase order status updated", "order_id", orderId, "status", params.Status)

	utils.WriteSuccess(w)
}

type reorderRequest struct {
	SupplierId uuid.UUID          `json:"supplier_id"`
	Notes      string             `json:"notes"`
	LineItems  []orderItemRequest `json:"line_items"`
}

// Reorder creates a draft purchase order and appends all requested line items
// in a single transaction. Either the full order is created or nothing is.
func (s *ProcurementService) Reorder(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params reorderRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if len(params.LineItems) == 0 {
		http.Error(w, "reorder must contain at least one line item", http.StatusUnprocessableEntity)
		return
	}

	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	order := schema.PurchaseOrder{
		Id:          uuid.New(),
		WorkspaceId: workspaceId,
		SupplierId:  params.SupplierId,
		Status:      schema.OrderDraft,
		Notes:       params.Notes,
		CreatedBy:   &user.Id,
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkSupplierExists(txn, workspaceId, params.SupplierId); err != nil {
			return err
		}

		if result := txn.Create(&order); result.Error != nil {
			slog.Error("sql error creating reorder purchase order", "workspace_id", workspaceId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		for position, line := range params.LineItems {
			if _, err := appendOrderItem(txn, workspaceId, order.Id, line, position); err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error creating reorder: %v", err), GetResponseCode(err))
		return
	}

	ordersCreated.Inc()
	reordersCreated.Inc()
	slog.Info("reorder created", "order_id", order.Id, "workspace_id", workspaceId, "lines", len(params.LineItems))

	created, err := schema.GetPurchaseOrder(workspaceId, order.Id, s.db, true)
	if err != nil {
		http.Error(w, fmt.Sprintf("error loading created reorder: %v", err), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToOrderInfo(&created))
}

type draftEmailRequest struct {
	InventoryItemId *uuid.UUID `json:"inventory_item_id"`
	ItemName        string     `json:"item_name"`
	CurrentQuantity int        `json:"current_quantity"`
	ReorderQuantity int        `json:"reorder_quantity"`
	SupplierId      *uuid.UUID `json:"supplier_id"`
	SupplierName    string     `json:"supplier_name"`
	Sku             string     `json:"sku"`
	UnitPrice       *float64   `json:"unit_price"`
	CompanyName     string     `json:"company_name"`
	SenderName      string     `json:"sender_name"`
}

// DraftReorderEmail produces a reorder email for a supplier. Generation
// failures never surface to the caller, the deterministic template is used
// instead and flagged in the response.
func (s *ProcurementService) DraftReorderEmail(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params draftEmailRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	req := emailgen.DraftRequest{
		ItemName:        params.ItemName,
		CurrentQuantity: params.CurrentQuantity,
		ReorderQuantity: params.ReorderQuantity,
		SupplierName:    params.SupplierName,
		Sku:             params.Sku,
		UnitPrice:       params.UnitPrice,
		CompanyName:     params.CompanyName,
		SenderName:      params.SenderName,
	}

	if params.InventoryItemId != nil {
		item, err := schema.GetInventoryItem(workspaceId, *params.InventoryItemId, s.db)
		if err != nil {
			if errors.Is(err, schema.ErrItemNotFound) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			http.Error(w, fmt.Sprintf("error drafting email: %v", err), http.StatusInternalServerError)
			return
		}

		if req.ItemName == "" {
			req.ItemName = item.Name
		}
		if req.Sku == "" {
			req.Sku = item.Sku
		}
		if req.UnitPrice == nil {
			req.UnitPrice = item.UnitPrice
		}
		if req.CurrentQuantity == 0 {
			req.CurrentQuantity = item.Quantity
		}
		if req.ReorderQuantity == 0 {
			req.ReorderQuantity = item.DraftOrderQuantity()
		}
		if req.SupplierName == "" && item.Supplier != nil {
			req.SupplierName = item.Supplier.CompanyName
		}
	}

	if params.SupplierId != nil && req.SupplierName == "" {
		supplier, err := schema.GetSupplier(workspaceId, *params.SupplierId, s.db)
		if err != nil {
			if errors.Is(err, schema.ErrSupplierNotFound) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			http.Error(w, fmt.Sprintf("error drafting email: %v", err), http.StatusInternalServerError)
			return
		}
		req.SupplierName = supplier.CompanyName
	}

	if req.ItemName == "" {
		http.Error(w, "item_name must not be empty", http.StatusUnprocessableEntity)
		return
	}

	if s.drafter == nil {
		draftEmailsGenerated.WithLabelValues("fallback").Inc()
		utils.WriteJsonResponse(w, emailgen.DraftResponse{Email: emailgen.ManualDraft(&req), Fallback: true})
		return
	}

	email, err := s.drafter.Draft(r.Context(), &req)
	if err != nil {
		slog.Error("email generation failed, using manual template", "workspace_id", workspaceId, "error", err)
		draftEmailsGenerated.WithLabelValues("fallback").Inc()
		utils.WriteJsonResponse(w, emailgen.DraftResponse{Email: emailgen.ManualDraft(&req), Fallback: true})
		return
	}

	draftEmailsGenerated.WithLabelValues("generated").Inc()
	utils.WriteJsonResponse(w, emailgen.DraftResponse{Email: email, Fallback: false})
}
