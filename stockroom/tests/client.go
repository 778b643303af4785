package tests

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/gerald-spec/novastock/stockroom/services"
	"github.com/gerald-spec/novastock/utils/emailgen"

	"github.com/go-chi/chi/v5"
)

type httpTestRequest struct {
	api http.Handler

	method   string
	endpoint string
	headers  map[string]string
	json     interface{}
	body     io.Reader
	login    *loginInfo
}

func newHttpTestRequest(api http.Handler, method, endpoint string) *httpTestRequest {
	return &httpTestRequest{
		api:      api,
		method:   method,
		endpoint: endpoint,
		headers:  nil,
		json:     nil,
		body:     nil,
	}
}

func (r *httpTestRequest) Header(key, value string) *httpTestRequest {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r
}

func (r *httpTestRequest) Login(email, password string) *httpTestRequest {
	r.login = &loginInfo{Email: email, Password: password}
	return r
}

func (r *httpTestRequest) Auth(token string) *httpTestRequest {
	return r.Header("Authorization", fmt.Sprintf("Bearer %v", token))
}

func (r *httpTestRequest) Json(data interface{}) *httpTestRequest {
	r.json = data
	return r
}

// response body will be parsed into result, passing nil indicates that no result is returned.
func (r *httpTestRequest) Do(result interface{}) error {
	if r.json != nil {
		body := new(bytes.Buffer)
		err := json.NewEncoder(body).Encode(r.json)
		if err != nil {
			return fmt.Errorf("error encoding json body for endpoint %v: %w", r.endpoint, err)
		}
		r.body = body
	}

	req := httptest.NewRequest(r.method, r.endpoint, r.body)
	if r.headers != nil {
		for k, v := range r.headers {
			req.Header.Add(k, v)
		}
	}

	if r.login != nil {
		req.SetBasicAuth(r.login.Email, r.login.Password)
	}

	w := httptest.NewRecorder()

	r.api.ServeHTTP(w, req)

	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return &statusError{
			code: res.StatusCode,
			msg:  fmt.Sprintf("%v request to endpoint %v returned status %d, content '%v'", r.method, r.endpoint, res.StatusCode, w.Body.String()),
		}
	}

	if result != nil {
		err := json.NewDecoder(res.Body).Decode(result)
		if err != nil {
			return fmt.Errorf("error parsing %v response from endpoint %v: %w", r.method, r.endpoint, err)
		}
	}

	return nil
}

type statusError struct {
	code int
	msg  string
}

func (e *statusError) Error() string {
	return e.msg
}

// statusCode returns the http status of a failed request, or 0 if the error
// did not come from a response.
func statusCode(err error) int {
	var serr *statusError
	if errors.As(err, &serr) {
		return serr.code
	}
	return 0
}

type client struct {
	api       chi.Router
	authToken string
	userId    string
}

func (c *client) Get(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "GET", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *client) Post(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "POST", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *client) Delete(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "DELETE", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

type loginInfo struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *client) signup(username, email, password string) (loginInfo, error) {
	body := map[string]string{
		"email": email, "username": username, "password": password,
	}

	err := c.Post("/user/signup").Json(body).Do(nil)
	if err != nil {
		return loginInfo{}, err
	}

	return loginInfo{Email: email, Password: password}, nil
}

func (c *client) login(login loginInfo) error {
	var res map[string]string
	err := c.Get("/user/login").Login(login.Email, login.Password).Do(&res)
	if err != nil {
		return err
	}

	c.authToken = res["access_token"]
	c.userId = res["user_id"]

	return nil
}

func (c *client) userInfo() (services.UserInfo, error) {
	var res services.UserInfo
	err := c.Get("/user/info").Do(&res)
	return res, err
}

func (c *client) userWorkspaces() ([]services.UserWorkspaceInfo, error) {
	var res []services.UserWorkspaceInfo
	err := c.Get("/user/workspaces").Do(&res)
	return res, err
}

func (c *client) myInvitations() ([]services.InvitationInfo, error) {
	var res []services.InvitationInfo
	err := c.Get("/user/invitations").Do(&res)
	return res, err
}

func (c *client) acceptInvitation(invitationId string) error {
	return c.Post(fmt.Sprintf("/user/invitations/%v/accept", invitationId)).Do(nil)
}

func (c *client) createWorkspace(name string) (string, error) {
	body := map[string]string{"name": name}

	var res map[string]string
	err := c.Post("/workspace/create").Json(body).Do(&res)
	return res["workspace_id"], err
}

func (c *client) listWorkspaces() ([]services.WorkspaceInfo, error) {
	var res []services.WorkspaceInfo
	err := c.Get("/workspace/list").Do(&res)
	return res, err
}

func (c *client) workspaceInfo(workspaceId string) (services.WorkspaceInfo, error) {
	var res services.WorkspaceInfo
	err := c.Get(fmt.Sprintf("/workspace/%v/", workspaceId)).Do(&res)
	return res, err
}

func (c *client) renameWorkspace(workspaceId, name string) error {
	return c.Post(fmt.Sprintf("/workspace/%v/name", workspaceId)).Json(map[string]string{"name": name}).Do(nil)
}

func (c *client) deleteWorkspace(workspaceId string) error {
	return c.Delete(fmt.Sprintf("/workspace/%v/", workspaceId)).Do(nil)
}

func (c *client) listMembers(workspaceId string) ([]services.WorkspaceMemberInfo, error) {
	var res []services.WorkspaceMemberInfo
	err := c.Get(fmt.Sprintf("/workspace/%v/members", workspaceId)).Do(&res)
	return res, err
}

func (c *client) updateMemberRole(workspaceId, userId, role string) error {
	body := map[string]string{"role": role}
	return c.Post(fmt.Sprintf("/workspace/%v/members/%v/role", workspaceId, userId)).Json(body).Do(nil)
}

func (c *client) removeMember(workspaceId, userId string) error {
	return c.Delete(fmt.Sprintf("/workspace/%v/members/%v", workspaceId, userId)).Do(nil)
}

func (c *client) createInvitation(workspaceId, email, role string) (string, error) {
	body := map[string]string{"email": email, "role": role}

	var res map[string]string
	err := c.Post(fmt.Sprintf("/workspace/%v/invitations", workspaceId)).Json(body).Do(&res)
	return res["invitation_id"], err
}

func (c *client) createInvitationWithToken(workspaceId, email, role string) (string, string, error) {
	body := map[string]string{"email": email, "role": role}

	var res map[string]string
	err := c.Post(fmt.Sprintf("/workspace/%v/invitations", workspaceId)).Json(body).Do(&res)
	return res["invitation_id"], res["invite_token"], err
}

func (c *client) acceptInvitationToken(token string) error {
	body := map[string]string{"invite_token": token}
	return c.Post("/user/invitations/accept").Json(body).Do(nil)
}

func (c *client) listInvitations(workspaceId string) ([]services.InvitationInfo, error) {
	var res []services.InvitationInfo
	err := c.Get(fmt.Sprintf("/workspace/%v/invitations", workspaceId)).Do(&res)
	return res, err
}

func (c *client) revokeInvitation(workspaceId, invitationId string) error {
	return c.Delete(fmt.Sprintf("/workspace/%v/invitations/%v", workspaceId, invitationId)).Do(nil)
}

type supplierArgs struct {
	CompanyName string `json:"company_name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Website     string `json:"website,omitempty"`
	Address     string `json:"address,omitempty"`
}

func (c *client) createSupplier(workspaceId string, args supplierArgs) (string, error) {
	var res map[string]string
	err := c.Post(fmt.Sprintf("/catalog/%v/suppliers", workspaceId)).Json(args).Do(&res)
	return res["supplier_id"], err
}

func (c *client) updateSupplier(workspaceId, supplierId string, args supplierArgs) error {
	return c.Post(fmt.Sprintf("/catalog/%v/suppliers/%v", workspaceId, supplierId)).Json(args).Do(nil)
}

func (c *client) deleteSupplier(workspaceId, supplierId string) error {
	return c.Delete(fmt.Sprintf("/catalog/%v/suppliers/%v", workspaceId, supplierId)).Do(nil)
}

func (c *client) getSupplier(workspaceId, supplierId string) (services.SupplierInfo, error) {
	var res services.SupplierInfo
	err := c.Get(fmt.Sprintf("/catalog/%v/suppliers/%v", workspaceId, supplierId)).Do(&res)
	return res, err
}

func (c *client) listSuppliers(workspaceId string) ([]services.SupplierInfo, error) {
	var res []services.SupplierInfo
	err := c.Get(fmt.Sprintf("/catalog/%v/suppliers", workspaceId)).Do(&res)
	return res, err
}

type itemArgs struct {
	SupplierId  string   `json:"supplier_id,omitempty"`
	Name        string   `json:"name"`
	Sku         string   `json:"sku,omitempty"`
	Description string   `json:"description,omitempty"`
	Quantity    int      `json:"quantity"`
	MinQuantity int      `json:"min_quantity"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
}

func (c *client) createItem(workspaceId string, args itemArgs) (string, error) {
	var res map[string]string
	err := c.Post(fmt.Sprintf("/catalog/%v/items", workspaceId)).Json(args).Do(&res)
	return res["item_id"], err
}

func (c *client) updateItem(workspaceId, itemId string, args itemArgs) error {
	return c.Post(fmt.Sprintf("/catalog/%v/items/%v", workspaceId, itemId)).Json(args).Do(nil)
}

func (c *client) deleteItem(workspaceId, itemId string) error {
	return c.Delete(fmt.Sprintf("/catalog/%v/items/%v", workspaceId, itemId)).Do(nil)
}

func (c *client) getItem(workspaceId, itemId string) (services.ItemInfo, error) {
	var res services.ItemInfo
	err := c.Get(fmt.Sprintf("/catalog/%v/items/%v", workspaceId, itemId)).Do(&res)
	return res, err
}

func (c *client) listItems(workspaceId string) ([]services.ItemInfo, error) {
	var res []services.ItemInfo
	err := c.Get(fmt.Sprintf("/catalog/%v/items", workspaceId)).Do(&res)
	return res, err
}

func (c *client) listLowStockItems(workspaceId string) ([]services.ItemInfo, error) {
	var res []services.ItemInfo
	err := c.Get(fmt.Sprintf("/catalog/%v/items/low-stock", workspaceId)).Do(&res)
	return res, err
}

func (c *client) createOrder(workspaceId, supplierId string) (string, error) {
	body := map[string]string{"supplier_id": supplierId}

	var res map[string]string
	err := c.Post(fmt.Sprintf("/procurement/%v/orders", workspaceId)).Json(body).Do(&res)
	return res["order_id"], err
}

func (c *client) listOrders(workspaceId string) ([]services.OrderInfo, error) {
	var res []services.OrderInfo
	err := c.Get(fmt.Sprintf("/procurement/%v/orders", workspaceId)).Do(&res)
	return res, err
}

func (c *client) getOrder(workspaceId, orderId string) (services.OrderInfo, error) {
	var res services.OrderInfo
	err := c.Get(fmt.Sprintf("/procurement/%v/orders/%v", workspaceId, orderId)).Do(&res)
	return res, err
}

func (c *client) deleteOrder(workspaceId, orderId string) error {
	return c.Delete(fmt.Sprintf("/procurement/%v/orders/%v", workspaceId, orderId)).Do(nil)
}

type orderLineArgs struct {
	InventoryItemId string   `json:"inventory_item_id,omitempty"`
	ItemName        string   `json:"item_name,omitempty"`
	Quantity        int      `json:"quantity,omitempty"`
	UnitPrice       *float64 `json:"unit_price,omitempty"`
}

func (c *client) addOrderItem(workspaceId, orderId string, args orderLineArgs) error {
	return c.Post(fmt.Sprintf("/procurement/%v/orders/%v/items", workspaceId, orderId)).Json(args).Do(nil)
}

func (c *client) updateOrderStatus(workspaceId, orderId, status string) error {
	body := map[string]string{"status": status}
	return c.Post(fmt.Sprintf("/procurement/%v/orders/%v/status", workspaceId, orderId)).Json(body).Do(nil)
}

func (c *client) reorder(workspaceId, supplierId string, lines []orderLineArgs) (services.OrderInfo, error) {
	body := map[string]interface{}{"supplier_id": supplierId, "line_items": lines}

	var res services.OrderInfo
	err := c.Post(fmt.Sprintf("/procurement/%v/reorder", workspaceId)).Json(body).Do(&res)
	return res, err
}

func (c *client) draftReorderEmail(workspaceId string, body map[string]interface{}) (emailgen.DraftResponse, error) {
	var res emailgen.DraftResponse
	err := c.Post(fmt.Sprintf("/procurement/%v/reorder/draft-email", workspaceId)).Json(body).Do(&res)
	return res, err
}
