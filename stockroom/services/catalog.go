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

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CatalogService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

func (s *CatalogService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.Route("/{workspace_id}", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.WorkspaceMemberOnly(s.db))

			r.Get("/suppliers", s.ListSuppliers)
			r.Get("/suppliers/{supplier_id}", s.GetSupplier)

			r.Get("/items", s.ListItems)
			r.Get("/items/{item_id}", s.GetItem)
			r.Get("/items/low-stock", s.ListLowStockItems)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.WorkspaceAdminOnly(s.db))

			r.Post("/suppliers", s.CreateSupplier)
			r.Post("/suppliers/{supplier_id}", s.UpdateSupplier)
			r.Delete("/suppliers/{supplier_id}", s.DeleteSupplier)

			r.Post("/items", s.CreateItem)
			r.Post("/items/{item_id}", s.UpdateItem)
			r.Delete("/items/{item_id}", s.DeleteItem)
		})
	})

	return r
}

type supplierRequest struct {
	CompanyName string `json:"company_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Website     string `json:"website"`
	Address     string `json:"address"`
}

func (p *supplierRequest) validate() error {
	if len(p.CompanyName) == 0 {
		return errors.New("supplier company_name must not be empty")
	}
	if len(p.Email) > 0 && !utils.ValidEmail(p.Email) {
		return fmt.Errorf("invalid supplier email '%v'", p.Email)
	}
	return nil
}

type SupplierInfo struct {
	Id          uuid.UUID `json:"id"`
	CompanyName string    `json:"company_name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Website     string    `json:"website"`
	Address     string    `json:"address"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func convertToSupplierInfo(supplier *schema.Supplier) SupplierInfo {
	return SupplierInfo{
		Id:          supplier.Id,
		CompanyName: supplier.CompanyName,
		Email:       supplier.Email,
		Phone:       supplier.Phone,
		Website:     supplier.Website,
		Address:     supplier.Address,
		CreatedAt:   supplier.CreatedAt,
		UpdatedAt:   supplier.UpdatedAt,
	}
}

func (s *CatalogService) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var suppliers []schema.Supplier
	result := s.db.Where("workspace_id = ?", workspaceId).Order("company_name asc").Find(&suppliers)
	if result.Error != nil {
		slog.Error("sql error listing suppliers", "workspace_id", workspaceId, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing suppliers: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]SupplierInfo, 0, len(suppliers))
	for _, supplier := range suppliers {
		infos = append(infos, convertToSupplierInfo(&supplier))
	}
	utils.WriteJsonResponse(w, infos)
}

func (s *CatalogService) GetSupplier(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	supplierId, err := utils.URLParamUUID(r, "supplier_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	supplier, err := schema.GetSupplier(workspaceId, supplierId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrSupplierNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("error getting supplier: %v", err), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToSupplierInfo(&supplier))
}

func (s *CatalogService) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params supplierRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if err := params.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	supplier := schema.Supplier{
		Id:          uuid.New(),
		WorkspaceId: workspaceId,
		CompanyName: params.CompanyName,
		Email:       params.Email,
		Phone:       params.Phone,
		Website:     params.Website,
		Address:     params.Address,
	}

	result := s.db.Create(&supplier)
	if result.Error != nil {
		slog.Error("sql error creating supplier", "workspace_id", workspaceId, "error", result.Error)
		http.Error(w, fmt.Sprintf("error creating supplier: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	slog.Info("supplier created", "supplier_id", supplier.Id, "workspace_id", workspaceId)

	utils.WriteJsonResponse(w, map[string]interface{}{"supplier_id": supplier.Id})
}

func (s *CatalogService) UpdateSupplier(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	supplierId, err := utils.URLParamUUID(r, "supplier_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params supplierRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if err := params.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkSupplierExists(txn, workspaceId, supplierId); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"company_name": params.CompanyName,
			"email":        params.Email,
			"phone":        params.Phone,
			"website":      params.Website,
			"address":      params.Address,
		}
		result := txn.Model(&schema.Supplier{Id: supplierId}).Updates(updates)
		if result.Error != nil {
			slog.Error("sql error updating supplier", "supplier_id", supplierId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating supplier: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}

// DeleteSupplier removes a supplier, detaching any catalog items that
// reference it. Suppliers with purchase orders cannot be deleted since orders
// must keep their supplier for their lifetime.
func (s *CatalogService) DeleteSupplier(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	supplierId, err := utils.URLParamUUID(r, "supplier_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkSupplierExists(txn, workspaceId, supplierId); err != nil {
			return err
		}

		var orderCount int64
		countResult := txn.Model(&schema.PurchaseOrder{}).Where("supplier_id = ?", supplierId).Count(&orderCount)
		if countResult.Error != nil {
			slog.Error("sql error counting purchase orders for supplier", "supplier_id", supplierId, "error", countResult.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		if orderCount > 0 {
			return CodedError(fmt.Errorf("supplier %v has linked purchase orders", supplierId), http.StatusConflict)
		}

		detachResult := txn.Model(&schema.InventoryItem{}).
			Where("supplier_id = ?", supplierId).
			Update("supplier_id", nil)
		if detachResult.Error != nil {
			slog.Error("sql error detaching items from supplier", "supplier_id", supplierId, "error", detachResult.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		deleteResult := txn.Delete(&schema.Supplier{Id: supplierId})
		if deleteResult.Error != nil {
			slog.Error("sql error deleting supplier", "supplier_id", supplierId, "error", deleteResult.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting supplier: %v", err), GetResponseCode(err))
		return
	}

	slog.Info("supplier deleted", "supplier_id", supplierId, "workspace_id", workspaceId)

	utils.WriteSuccess(w)
}

type itemRequest struct {
	SupplierId  *uuid.UUID `json:"supplier_id"`
	Name        string     `json:"name"`
	Sku         string     `json:"sku"`
	Description string     `json:"description"`
	Quantity    int        `json:"quantity"`
	MinQuantity int        `json:"min_quantity"`
	UnitPrice   *float64   `json:"unit_price"`
}

func (p *itemRequest) validate() error {
	if len(p.Name) == 0 {
		return errors.New("item name must not be empty")
	}
	if p.Quantity < 0 {
		return fmt.Errorf("item quantity must not be negative, got %v", p.Quantity)
	}
	if p.MinQuantity < 0 {
		return fmt.Errorf("item min_quantity must not be negative, got %v", p.MinQuantity)
	}
	if p.UnitPrice != nil && *p.UnitPrice < 0 {
		return fmt.Errorf("item unit_price must not be negative, got %v", *p.UnitPrice)
	}
	return nil
}

type ItemInfo struct {
	Id           uuid.UUID  `json:"id"`
	SupplierId   *uuid.UUID `json:"supplier_id"`
	SupplierName string     `json:"supplier_name"`
	Name         string     `json:"name"`
	Sku          string     `json:"sku"`
	Description  string     `json:"description"`
	Quantity     int        `json:"quantity"`
	MinQuantity  int        `json:"min_quantity"`
	UnitPrice    *float64   `json:"unit_price"`
	LowStock     bool       `json:"low_stock"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func convertToItemInfo(item *schema.InventoryItem) ItemInfo {
	info := ItemInfo{
		Id:          item.Id,
		SupplierId:  item.SupplierId,
		Name:        item.Name,
		Sku:         item.Sku,
		Description: item.Description,
		Quantity:    item.Quantity,
		MinQuantity: item.MinQuantity,
		UnitPrice:   item.UnitPrice,
		LowStock:    item.LowStock(),
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
	if item.Supplier != nil {
		info.SupplierName = item.Supplier.CompanyName
	}
	return info
}

func (s *CatalogService) listWorkspaceItems(workspaceId uuid.UUID) ([]schema.InventoryItem, error) {
	var items []schema.InventoryItem
	result := s.db.Preload("Supplier").Where("workspace_id = ?", workspaceId).Order("name asc").Find(&items)
	if result.Error != nil {
		slog.Error("sql error listing inventory items", "workspace_id", workspaceId, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}
	return items, nil
}

func (s *CatalogService) ListItems(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	items, err := s.listWorkspaceItems(workspaceId)
	if err != nil {
		http.Error(w, fmt.Sprintf("error listing items: %v", err), http.StatusInternalServerError)
		return
	}

	infos := make([]ItemInfo, 0, len(items))
	for _, item := range items {
		infos = append(infos, convertToItemInfo(&item))
	}
	utils.WriteJsonResponse(w, infos)
}

func (s *CatalogService) ListLowStockItems(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	items, err := s.listWorkspaceItems(workspaceId)
	if err != nil {
		http.Error(w, fmt.Sprintf("error listing low stock items: %v", err), http.StatusInternalServerError)
		return
	}

	lowStock := schema.LowStockItems(items)

	infos := make([]ItemInfo, 0, len(lowStock))
	for _, item := range lowStock {
		infos = append(infos, convertToItemInfo(&item))
	}
	utils.WriteJsonResponse(w, infos)
}

func (s *CatalogService) GetItem(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	itemId, err := utils.URLParamUUID(r, "item_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	item, err := schema.GetInventoryItem(workspaceId, itemId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrItemNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("error getting item: %v", err), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToItemInfo(&item))
}

func (s *CatalogService) CreateItem(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params itemRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if err := params.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	item := schema.InventoryItem{
		Id:          uuid.New(),
		WorkspaceId: workspaceId,
		SupplierId:  params.SupplierId,
		Name:        params.Name,
		Sku:         params.Sku,
		Description: params.Description,
		Quantity:    params.Quantity,
		MinQuantity: params.MinQuantity,
		UnitPrice:   params.UnitPrice,
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if params.SupplierId != nil {
			if err := checkSupplierExists(txn, workspaceId, *params.SupplierId); err != nil {
				return err
			}
		}

		if result := txn.Create(&item); result.Error != nil {
			slog.Error("sql error creating inventory item", "workspace_id", workspaceId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error creating item: %v", err), GetResponseCode(err))
		return
	}

	slog.Info("inventory item created", "item_id", item.Id, "workspace_id", workspaceId)

	utils.WriteJsonResponse(w, map[string]interface{}{"item_id": item.Id})
}

func (s *CatalogService) UpdateItem(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	itemId, err := utils.URLParamUUID(r, "item_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params itemRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if err := params.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if _, err := schema.GetInventoryItem(workspaceId, itemId, txn); err != nil {
			if errors.Is(err, schema.ErrItemNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if params.SupplierId != nil {
			if err := checkSupplierExists(txn, workspaceId, *params.SupplierId); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"supplier_id":  params.SupplierId,
			"name":         params.Name,
			"sku":          params.Sku,
			"description":  params.Description,
			"quantity":     params.Quantity,
			"min_quantity": params.MinQuantity,
			"unit_price":   params.UnitPrice,
		}
		result := txn.Model(&schema.InventoryItem{Id: itemId}).Updates(updates)
		if result.Error != nil {
			slog.Error("sql error updating inventory item", "item_id", itemId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating item: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}

func (s *CatalogService) DeleteItem(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	itemId, err := utils.URLParamUUID(r, "item_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if _, err := schema.GetInventoryItem(workspaceId, itemId, txn); err != nil {
			if errors.Is(err, schema.ErrItemNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		// Line items referencing this catalog entry keep their snapshot, only
		// the back reference is cleared.
		detach := txn.Model(&schema.PurchaseOrderItem{}).
			Where("inventory_item_id = ?", itemId).
			Update("inventory_item_id", nil)
		if detach.Error != nil {
			slog.Error("sql error detaching order lines", "item_id", itemId, "error", detach.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		result := txn.Delete(&schema.InventoryItem{Id: itemId})
		if result.Error != nil {
			slog.Error("sql error deleting inventory item", "item_id", itemId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting item: %v", err), GetResponseCode(err))
		return
	}

	slog.Info("inventory item deleted", "item_id", itemId, "workspace_id", workspaceId)

	utils.WriteSuccess(w)
}
