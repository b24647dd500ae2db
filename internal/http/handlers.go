package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront/internal/domain"
)

// Catalog

// @Summary Get product by id
// @Tags products
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} productResp
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	p, err := s.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newProduct(p))
}

type addReviewReq struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
}

// @Summary Add product review
// @Tags products
// @Accept json
// @Produce json
// @Param id path int true "Product ID"
// @Param input body addReviewReq true "Review"
// @Success 201 {object} reviewResp
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id}/reviews [post]
func (s *Server) addReview(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req addReviewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	r, err := s.catalog.AddReview(c.Request.Context(), id, domain.Review{Name: req.Name, Description: req.Description})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newReview(r))
}

// Carts

// @Summary Create cart
// @Tags carts
// @Produce json
// @Success 201 {object} cartResp
// @Router /carts [post]
func (s *Server) createCart(c *gin.Context) {
	cart, err := s.carts.CreateCart(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newCart(cart))
}

// @Summary Get cart
// @Tags carts
// @Produce json
// @Param id path string true "Cart ID"
// @Success 200 {object} cartResp
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /carts/{id} [get]
func (s *Server) getCart(c *gin.Context) {
	id, ok := cartID(c)
	if !ok {
		return
	}
	cart, err := s.carts.GetCart(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCart(cart))
}

// @Summary Delete cart
// @Tags carts
// @Param id path string true "Cart ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /carts/{id} [delete]
func (s *Server) deleteCart(c *gin.Context) {
	id, ok := cartID(c)
	if !ok {
		return
	}
	if err := s.carts.DeleteCart(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type addCartItemReq struct {
	ProductID int64  `json:"product_id" binding:"required"`
	Quantity  *int64 `json:"quantity" binding:"required"`
}

// @Summary Add product to cart
// @Description Adds to the quantity when the product is already in the cart.
// @Tags carts
// @Accept json
// @Produce json
// @Param id path string true "Cart ID"
// @Param input body addCartItemReq true "Item"
// @Success 201 {object} cartItemResp
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /carts/{id}/items [post]
func (s *Server) addCartItem(c *gin.Context) {
	id, ok := cartID(c)
	if !ok {
		return
	}
	var req addCartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	item, err := s.carts.AddItem(c.Request.Context(), id, req.ProductID, *req.Quantity)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newCartItem(*item))
}

type updateCartItemReq struct {
	Quantity *int64 `json:"quantity" binding:"required"`
}

// @Summary Change cart item quantity
// @Tags carts
// @Accept json
// @Produce json
// @Param id path string true "Cart ID"
// @Param item_id path int true "Item ID"
// @Param input body updateCartItemReq true "Quantity"
// @Success 200 {object} cartItemResp
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /carts/{id}/items/{item_id} [patch]
func (s *Server) updateCartItem(c *gin.Context) {
	id, ok := cartID(c)
	if !ok {
		return
	}
	itemID, err := parseID(c.Param("item_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req updateCartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	item, err := s.carts.UpdateItem(c.Request.Context(), id, itemID, *req.Quantity)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartItem(*item))
}

// @Summary Remove cart item
// @Tags carts
// @Param id path string true "Cart ID"
// @Param item_id path int true "Item ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /carts/{id}/items/{item_id} [delete]
func (s *Server) removeCartItem(c *gin.Context) {
	id, ok := cartID(c)
	if !ok {
		return
	}
	itemID, err := parseID(c.Param("item_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := s.carts.RemoveItem(c.Request.Context(), id, itemID); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Orders

type placeOrderReq struct {
	CartID string `json:"cart_id" binding:"required,uuid"`
}

// @Summary Place order
// @Description Converts the cart into an order of the authenticated customer and deletes the cart.
// @Tags orders
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Authenticated user"
// @Param input body placeOrderReq true "Cart"
// @Success 201 {object} orderResp
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /orders [post]
func (s *Server) placeOrder(c *gin.Context) {
	var req placeOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	o, err := s.orders.PlaceOrder(c.Request.Context(), c.GetString(ctxUserID), uuid.MustParse(req.CartID))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newOrder(o))
}

// @Summary List own orders
// @Tags orders
// @Produce json
// @Param X-User-ID header string true "Authenticated user"
// @Success 200 {array} orderResp
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders [get]
func (s *Server) listOrders(c *gin.Context) {
	list, err := s.orders.ListOrders(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]orderResp, 0, len(list))
	for i := range list {
		out = append(out, newOrder(&list[i]))
	}
	c.JSON(http.StatusOK, out)
}

// @Summary Get own order by id
// @Tags orders
// @Produce json
// @Param X-User-ID header string true "Authenticated user"
// @Param id path int true "Order ID"
// @Success 200 {object} orderResp
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	o, err := s.orders.GetOrder(c.Request.Context(), c.GetString(ctxUserID), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrder(o))
}

type updateOrderReq struct {
	PaymentStatus string `json:"payment_status" binding:"required,payment_status"`
}

// @Summary Update payment status
// @Tags orders
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Authenticated user"
// @Param X-User-Role header string true "Must be admin"
// @Param id path int true "Order ID"
// @Param input body updateOrderReq true "Status"
// @Success 200 {object} orderResp
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [patch]
func (s *Server) updateOrder(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req updateOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	status := domain.PaymentStatus(req.PaymentStatus)
	o, err := s.orders.UpdatePaymentStatus(c.Request.Context(), id, status)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.metrics.PaymentUpdates.WithLabelValues(string(status)).Inc()
	c.JSON(http.StatusOK, newOrder(o))
}

// Customers

// @Summary Current customer
// @Tags customers
// @Produce json
// @Param X-User-ID header string true "Authenticated user"
// @Success 200 {object} domain.Customer
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /customers/me [get]
func (s *Server) me(c *gin.Context) {
	cust, err := s.customers.Me(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cust)
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// cartID parses the :id path parameter and writes the 400 itself.
func cartID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Must be a valid UUID.", "field": "id"})
		return uuid.Nil, false
	}
	return id, true
}
