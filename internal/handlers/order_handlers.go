package handlers

import (
	"net/http"
	"strconv"

	"gstledger/internal/common"
	"gstledger/internal/models"
	"gstledger/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderHandlers handles HTTP requests for orders
type OrderHandlers struct {
	orderService services.OrderServiceInterface
	logger       *zap.Logger
}

func NewOrderHandlers(orderService services.OrderServiceInterface, logger *zap.Logger) *OrderHandlers {
	return &OrderHandlers{
		orderService: orderService,
		logger:       logger,
	}
}

type orderLineRequest struct {
	ItemID string           `json:"item_id"`
	Qty    *decimal.Decimal `json:"qty" swaggertype:"number"`
}

type orderRequest struct {
	BuyerID string             `json:"buyer_id"`
	Items   []orderLineRequest `json:"items"`
}

func parseOrderLines(items []orderLineRequest) ([]models.OrderLineInput, error) {
	lines := make([]models.OrderLineInput, 0, len(items))
	for _, item := range items {
		itemID, err := common.ValidateUUID(item.ItemID, "item_id")
		if err != nil {
			return nil, err
		}
		lines = append(lines, models.OrderLineInput{ItemID: itemID, Quantity: item.Qty})
	}
	return lines, nil
}

// CreateOrder handles POST /orders
//
//	@Summary	Create an order
//	@Tags		orders
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		orderRequest	true	"Buyer and items"
//	@Success	201	{object}	map[string]interface{}
//	@Failure	400	{object}	common.ErrorResponse
//	@Failure	404	{object}	common.ErrorResponse
//	@Failure	417	{object}	common.ErrorResponse
//	@Failure	500	{object}	common.ErrorResponse
//	@Router		/orders [post]
func (h *OrderHandlers) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()

	var req orderRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	// The caller places the order for themselves unless a buyer is named.
	var buyerID uuid.UUID
	if req.BuyerID == "" {
		userID, ok := common.GetUserIDFromContext(ctx)
		if !ok {
			return common.SendValidationError(c, "buyer_id", "buyer_id is required")
		}
		buyerID = userID
	} else {
		id, err := common.ValidateUUID(req.BuyerID, "buyer_id")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		buyerID = id
	}

	lines, err := parseOrderLines(req.Items)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	order, err := h.orderService.CreateOrder(ctx, buyerID, lines)
	if err != nil {
		return common.SendDomainError(c, h.logger, "create order", err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"order": order})
}

// UpdateOrder handles PUT /orders/:id
//
//	@Summary	Replace an order's items
//	@Tags		orders
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Order ID"
//	@Param		request	body		orderRequest	true	"Replacement items"
//	@Success	200	{object}	map[string]interface{}
//	@Failure	400	{object}	common.ErrorResponse
//	@Failure	404	{object}	common.ErrorResponse
//	@Failure	417	{object}	common.ErrorResponse
//	@Failure	500	{object}	common.ErrorResponse
//	@Router		/orders/{id} [put]
func (h *OrderHandlers) UpdateOrder(c echo.Context) error {
	orderID, err := common.ValidateUUID(c.Param("id"), "order id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req orderRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	lines, err := parseOrderLines(req.Items)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	order, err := h.orderService.UpdateOrder(c.Request().Context(), orderID, lines)
	if err != nil {
		return common.SendDomainError(c, h.logger, "update order", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"order": order})
}

// DeleteOrder handles DELETE /orders/:id
//
//	@Summary	Soft-delete an order
//	@Tags		orders
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Order ID"
//	@Success	200	{object}	map[string]interface{}
//	@Failure	400	{object}	common.ErrorResponse
//	@Failure	404	{object}	common.ErrorResponse
//	@Failure	500	{object}	common.ErrorResponse
//	@Router		/orders/{id} [delete]
func (h *OrderHandlers) DeleteOrder(c echo.Context) error {
	orderID, err := common.ValidateUUID(c.Param("id"), "order id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	order, err := h.orderService.DeleteOrder(c.Request().Context(), orderID)
	if err != nil {
		return common.SendDomainError(c, h.logger, "delete order", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"order": order})
}

// GetOrder handles GET /orders/:id
//
//	@Summary	Get an order
//	@Tags		orders
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Order ID"
//	@Success	200	{object}	map[string]interface{}
//	@Failure	400	{object}	common.ErrorResponse
//	@Failure	404	{object}	common.ErrorResponse
//	@Failure	500	{object}	common.ErrorResponse
//	@Router		/orders/{id} [get]
func (h *OrderHandlers) GetOrder(c echo.Context) error {
	orderID, err := common.ValidateUUID(c.Param("id"), "order id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	order, err := h.orderService.GetOrder(c.Request().Context(), orderID)
	if err != nil {
		return common.SendDomainError(c, h.logger, "get order", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"order": order})
}

// ListOrders handles GET /orders
//
//	@Summary	List orders
//	@Tags		orders
//	@Produce	json
//	@Security	BearerAuth
//	@Param		limit	query		int		false	"Page size (default 50, max 1000)"
//	@Param		offset	query		int		false	"Rows to skip"
//	@Success	200	{object}	map[string]interface{}
//	@Failure	400	{object}	common.ErrorResponse
//	@Failure	500	{object}	common.ErrorResponse
//	@Router		/orders [get]
func (h *OrderHandlers) ListOrders(c echo.Context) error {
	limit, offset, err := paginationFromQuery(c)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	orders, err := h.orderService.ListOrders(c.Request().Context(), limit, offset)
	if err != nil {
		return common.SendDomainError(c, h.logger, "list orders", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"orders": orders,
		"limit":  limit,
		"offset": offset,
	})
}

func paginationFromQuery(c echo.Context) (int, int, error) {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	return common.ValidatePaginationParams(limit, offset)
}
