package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/marketplace-backend/internal/model"
	"github.com/shinyyama/marketplace-backend/internal/repository"
	"github.com/shinyyama/marketplace-backend/internal/service"
)

type ConversationHandler struct {
	svc service.ConversationService
}

func NewConversationHandler(svc service.ConversationService) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

type ConversationResponse struct {
	ConversationID uint64     `json:"conversationId"`
	ListingID      uint64     `json:"listingId"`
	SellerUID      string     `json:"sellerUid"`
	BuyerUID       string     `json:"buyerUid"`
	IsBlocked      bool       `json:"isBlocked"`
	LastMessageAt  *time.Time `json:"lastMessageAt,omitempty"`
}

type ListingSummary struct {
	ListingID uint64 `json:"listingId"`
	Title     string `json:"title"`
	Price     uint   `json:"price"`
	Currency  string `json:"currency"`
}

type ConversationHeaderResponse struct {
	ConversationResponse
	Listing *ListingSummary `json:"listing,omitempty"`
}

type InboxItemResponse struct {
	ConversationID  uint64          `json:"conversationId"`
	ListingID       uint64          `json:"listingId"`
	OtherUID        string          `json:"otherUid"`
	Listing         *ListingSummary `json:"listing,omitempty"`
	LastMessageBody string          `json:"lastMessageBody,omitempty"`
	LastMessageAt   *time.Time      `json:"lastMessageAt,omitempty"`
	UnreadCount     int64           `json:"unreadCount"`
	IsBlocked       bool            `json:"isBlocked"`
}

type InboxResponse struct {
	Items []InboxItemResponse `json:"items"`
	Total int64               `json:"total"`
}

type MessageResponse struct {
	ID             uint64     `json:"id"`
	ConversationID uint64     `json:"conversationId"`
	SenderUID      string     `json:"senderUid"`
	Body           string     `json:"body"`
	SentAt         time.Time  `json:"sentAt"`
	ReadAt         *time.Time `json:"readAt,omitempty"`
}

type SendMessageRequest struct {
	Body string `json:"body"`
}

type SetBlockedRequest struct {
	Blocked bool `json:"blocked"`
}

func toConversationResponse(cv *model.Conversation) ConversationResponse {
	return ConversationResponse{
		ConversationID: cv.ID,
		ListingID:      cv.ListingID,
		SellerUID:      cv.SellerUID,
		BuyerUID:       cv.BuyerUID,
		IsBlocked:      cv.IsBlocked,
		LastMessageAt:  cv.LastMessageAt,
	}
}

func toMessageResponse(m model.Message) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderUID:      m.SenderUID,
		Body:           m.Body,
		SentAt:         m.SentAt,
		ReadAt:         m.ReadAt,
	}
}

func requireUID(c echo.Context) (string, bool) {
	uid, _ := c.Get("uid").(string)
	return uid, uid != ""
}

func paramID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil
}

// CreateFromListing starts (or returns) the thread between the caller and the
// listing's seller.
func (h *ConversationHandler) CreateFromListing(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	listingID, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid listing id"))
	}
	cv, err := h.svc.CreateOrGet(c.Request().Context(), listingID, uid)
	if err != nil {
		return JSONServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toConversationResponse(cv))
}

func (h *ConversationHandler) Inbox(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	entries, total, err := h.svc.Inbox(c.Request().Context(), uid, limit, offset)
	if err != nil {
		return JSONServiceError(c, err)
	}
	items := make([]InboxItemResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, toInboxItem(e))
	}
	return c.JSON(http.StatusOK, InboxResponse{Items: items, Total: total})
}

func toInboxItem(e repository.InboxEntry) InboxItemResponse {
	item := InboxItemResponse{
		ConversationID:  e.Conversation.ID,
		ListingID:       e.Conversation.ListingID,
		OtherUID:        e.OtherUID,
		LastMessageBody: e.LastMessageBody,
		LastMessageAt:   e.LastMessageAt,
		UnreadCount:     e.UnreadCount,
		IsBlocked:       e.Conversation.IsBlocked,
	}
	if e.ListingTitle != "" {
		item.Listing = &ListingSummary{
			ListingID: e.Conversation.ListingID,
			Title:     e.ListingTitle,
			Price:     e.ListingPrice,
			Currency:  e.ListingCurrency,
		}
	}
	return item
}

func (h *ConversationHandler) Get(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	convID, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	cv, listing, err := h.svc.Header(c.Request().Context(), convID, uid)
	if err != nil {
		return JSONServiceError(c, err)
	}
	resp := ConversationHeaderResponse{ConversationResponse: toConversationResponse(cv)}
	if listing != nil {
		resp.Listing = &ListingSummary{
			ListingID: listing.ID,
			Title:     listing.Title,
			Price:     listing.Price,
			Currency:  listing.Currency,
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// ListMessages pages backward with a keyset cursor: `before` is the sentAt of
// the oldest message the client already has. The page comes back ascending.
func (h *ConversationHandler) ListMessages(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	convID, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	take, _ := strconv.Atoi(c.QueryParam("take"))
	var before *time.Time
	if raw := c.QueryParam("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid before cursor"))
		}
		before = &t
	}
	msgs, err := h.svc.ListMessages(c.Request().Context(), convID, uid, take, before)
	if err != nil {
		return JSONServiceError(c, err)
	}
	resp := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, toMessageResponse(m))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ConversationHandler) SendMessage(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	convID, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	msg, err := h.svc.SendMessage(c.Request().Context(), convID, uid, req.Body)
	if err != nil {
		return JSONServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, toMessageResponse(*msg))
}

func (h *ConversationHandler) MarkRead(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	convID, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	if err := h.svc.MarkRead(c.Request().Context(), convID, uid); err != nil {
		return JSONServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ConversationHandler) SetBlocked(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	convID, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	var req SetBlockedRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	if err := h.svc.SetBlocked(c.Request().Context(), convID, uid, req.Blocked); err != nil {
		return JSONServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// DeleteMessage hides the message for the caller only; the other side keeps
// its copy.
func (h *ConversationHandler) DeleteMessage(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	convID, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	msgID, ok := paramID(c, "msgId")
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid message id"))
	}
	if err := h.svc.DeleteMessageForMe(c.Request().Context(), convID, msgID, uid); err != nil {
		return JSONServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
