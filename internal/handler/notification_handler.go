package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eventcraft/notifications/internal/domain"
	"github.com/eventcraft/notifications/internal/repository"
	"github.com/eventcraft/notifications/internal/service"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 100
)

type DispatchService interface {
	CreateNotification(ctx context.Context, input service.CreateNotificationInput) (*domain.Notification, error)
	CreateBulk(ctx context.Context, recipientIDs []string, input service.CreateNotificationInput) ([]domain.Notification, error)
	ListForUser(ctx context.Context, params repository.ListParams) ([]domain.Notification, int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkAsRead(ctx context.Context, id string, userID string) (*domain.Notification, error)
	MarkAllAsRead(ctx context.Context, userID string) (int64, error)
	DeleteNotification(ctx context.Context, id string, userID string) (int64, error)
}

type NotificationHandler struct {
	service DispatchService
}

func NewNotificationHandler(service DispatchService) (*NotificationHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("dispatch service is required")
	}
	return &NotificationHandler{service: service}, nil
}

func RegisterNotificationRoutes(router fiber.Router, service DispatchService) error {
	h, err := NewNotificationHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/notifications", h.CreateNotification)
	v1.Post("/notifications/bulk", h.CreateBulk)
	v1.Get("/notifications", h.ListNotifications)
	v1.Get("/notifications/unread-count", h.UnreadCount)
	v1.Post("/notifications/read-all", h.MarkAllRead)
	v1.Post("/notifications/:id/read", h.MarkRead)
	v1.Delete("/notifications/:id", h.DeleteNotification)

	return nil
}

type channelsPayload struct {
	InApp *bool `json:"inApp"`
	Email *bool `json:"email"`
	SMS   *bool `json:"sms"`
}

type actionPayload struct {
	Text string `json:"text"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

type createNotificationRequest struct {
	RecipientID string `json:"recipientId"`
	// User is the legacy recipient field accepted for backward compatibility
	// with older backend callers; it is translated here and nowhere deeper.
	User          string           `json:"user"`
	Title         string           `json:"title"`
	Message       string           `json:"message"`
	Type          string           `json:"type"`
	Priority      string           `json:"priority"`
	RelatedEvent  *string          `json:"relatedEvent"`
	RelatedTicket *string          `json:"relatedTicket"`
	Action        *actionPayload   `json:"action"`
	ExpiresAt     *time.Time       `json:"expiresAt"`
	ScheduledFor  *time.Time       `json:"scheduledFor"`
	Channels      *channelsPayload `json:"channels"`
}

type createBulkRequest struct {
	Recipients []string `json:"recipients"`
	createNotificationRequest
}

type channelStateResponse struct {
	Enabled        bool       `json:"enabled"`
	Sent           bool       `json:"sent"`
	SentAt         *time.Time `json:"sentAt,omitempty"`
	DeliveryStatus string     `json:"deliveryStatus,omitempty"`
}

type notificationResponse struct {
	ID            string                          `json:"id"`
	RecipientID   string                          `json:"recipientId"`
	Title         string                          `json:"title"`
	Message       string                          `json:"message"`
	Type          string                          `json:"type"`
	Priority      string                          `json:"priority"`
	Status        string                          `json:"status"`
	IsRead        bool                            `json:"isRead"`
	ReadAt        *time.Time                      `json:"readAt,omitempty"`
	Channels      map[string]channelStateResponse `json:"channels"`
	RelatedEvent  *string                         `json:"relatedEvent,omitempty"`
	RelatedTicket *string                         `json:"relatedTicket,omitempty"`
	Action        *actionPayload                  `json:"action,omitempty"`
	ExpiresAt     *time.Time                      `json:"expiresAt,omitempty"`
	ScheduledFor  time.Time                       `json:"scheduledFor"`
	CreatedAt     time.Time                       `json:"createdAt"`
	UpdatedAt     time.Time                       `json:"updatedAt"`
}

type listNotificationsResponse struct {
	Data []notificationResponse `json:"data"`
	Meta listMeta               `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *NotificationHandler) CreateNotification(c *fiber.Ctx) error {
	var req createNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	input, err := requestToInput(req)
	if err != nil {
		return toHTTPError(err)
	}

	created, err := h.service.CreateNotification(c.Context(), input)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toNotificationResponse(created))
}

func (h *NotificationHandler) CreateBulk(c *fiber.Ctx) error {
	var req createBulkRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if len(req.Recipients) == 0 {
		return toHTTPError(fmt.Errorf("%w: recipients is required", domain.ErrValidation))
	}

	input, err := bulkRequestToInput(req.createNotificationRequest)
	if err != nil {
		return toHTTPError(err)
	}

	created, err := h.service.CreateBulk(c.Context(), req.Recipients, input)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"requested": len(req.Recipients),
		"created":   len(created),
		"data":      toNotificationResponses(created),
	})
}

func (h *NotificationHandler) ListNotifications(c *fiber.Ctx) error {
	userID, err := requestUserID(c)
	if err != nil {
		return err
	}

	params, err := parseListParams(c, userID)
	if err != nil {
		return toHTTPError(err)
	}

	notifications, total, err := h.service.ListForUser(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(listNotificationsResponse{
		Data: toNotificationResponses(notifications),
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	userID, err := requestUserID(c)
	if err != nil {
		return err
	}

	count, err := h.service.CountUnread(c.Context(), userID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"unread": count})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := requestUserID(c)
	if err != nil {
		return err
	}

	id := strings.TrimSpace(c.Params("id"))
	notification, err := h.service.MarkAsRead(c.Context(), id, userID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toNotificationResponse(notification))
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	userID, err := requestUserID(c)
	if err != nil {
		return err
	}

	updated, err := h.service.MarkAllAsRead(c.Context(), userID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"updated": updated})
}

func (h *NotificationHandler) DeleteNotification(c *fiber.Ctx) error {
	userID, err := requestUserID(c)
	if err != nil {
		return err
	}

	id := strings.TrimSpace(c.Params("id"))
	deleted, err := h.service.DeleteNotification(c.Context(), id, userID)
	if err != nil {
		return toHTTPError(err)
	}
	if deleted == 0 {
		return toHTTPError(fmt.Errorf("%w: notification %s", domain.ErrNotFound, id))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"deleted": deleted})
}

// requestUserID resolves the authenticated caller. Authentication itself is
// upstream; the gateway forwards identity either as a request-local or a
// trusted header.
func requestUserID(c *fiber.Ctx) (string, error) {
	if value, ok := c.Locals("userId").(string); ok {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed, nil
		}
	}
	if value := strings.TrimSpace(c.Get("X-User-ID")); value != "" {
		return value, nil
	}
	return "", fiber.NewError(fiber.StatusUnauthorized, "user identity is required")
}

func parseListParams(c *fiber.Ctx, userID string) (repository.ListParams, error) {
	params := repository.ListParams{
		RecipientID: userID,
		Page:        c.QueryInt("page", defaultPage),
		PageSize:    c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.ListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.ListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawType := strings.TrimSpace(c.Query("type")); rawType != "" {
		category, err := domain.ParseCategoryFromString(rawType)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Category = &category
	}

	if rawIsRead := strings.TrimSpace(c.Query("isRead")); rawIsRead != "" {
		switch strings.ToLower(rawIsRead) {
		case "true":
			value := true
			params.IsRead = &value
		case "false":
			value := false
			params.IsRead = &value
		default:
			return repository.ListParams{}, fmt.Errorf("%w: isRead must be true or false", domain.ErrValidation)
		}
	}

	if rawPriority := strings.TrimSpace(c.Query("priority")); rawPriority != "" {
		priority, err := domain.ParsePriorityFromString(rawPriority)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Priority = &priority
	}

	return params, nil
}

func requestToInput(req createNotificationRequest) (service.CreateNotificationInput, error) {
	recipientID := strings.TrimSpace(req.RecipientID)
	if recipientID == "" {
		recipientID = strings.TrimSpace(req.User)
	}
	if recipientID == "" {
		return service.CreateNotificationInput{}, fmt.Errorf("%w: missing recipient", domain.ErrValidation)
	}

	input, err := bulkRequestToInput(req)
	if err != nil {
		return service.CreateNotificationInput{}, err
	}
	input.RecipientID = recipientID
	return input, nil
}

// bulkRequestToInput converts the shared (recipient-less) portion of a
// request.
func bulkRequestToInput(req createNotificationRequest) (service.CreateNotificationInput, error) {
	input := service.CreateNotificationInput{
		Title:           strings.TrimSpace(req.Title),
		Message:         strings.TrimSpace(req.Message),
		RelatedEventID:  req.RelatedEvent,
		RelatedTicketID: req.RelatedTicket,
		ExpiresAt:       req.ExpiresAt,
		ScheduledFor:    req.ScheduledFor,
	}

	if rawType := strings.TrimSpace(req.Type); rawType != "" {
		category, err := domain.ParseCategoryFromString(rawType)
		if err != nil {
			return service.CreateNotificationInput{}, err
		}
		input.Category = category
	}

	if rawPriority := strings.TrimSpace(req.Priority); rawPriority != "" {
		priority, err := domain.ParsePriorityFromString(rawPriority)
		if err != nil {
			return service.CreateNotificationInput{}, err
		}
		input.Priority = priority
	}

	if req.Action != nil {
		input.Action = &domain.Action{
			Text: req.Action.Text,
			URL:  req.Action.URL,
			Type: req.Action.Type,
		}
	}

	if req.Channels != nil {
		input.Channels = domain.ChannelRequest{
			InApp: req.Channels.InApp,
			Email: req.Channels.Email,
			SMS:   req.Channels.SMS,
		}
	}

	return input, nil
}

func toNotificationResponses(notifications []domain.Notification) []notificationResponse {
	responses := make([]notificationResponse, 0, len(notifications))
	for i := range notifications {
		responses = append(responses, toNotificationResponse(&notifications[i]))
	}
	return responses
}

func toNotificationResponse(n *domain.Notification) notificationResponse {
	if n == nil {
		return notificationResponse{}
	}

	resp := notificationResponse{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		Title:       n.Title,
		Message:     n.Message,
		Type:        n.Category.String(),
		Priority:    n.Priority.String(),
		Status:      n.Status.String(),
		IsRead:      n.IsRead,
		ReadAt:      n.ReadAt,
		Channels: map[string]channelStateResponse{
			"inApp": toChannelStateResponse(n.Channels.InApp),
			"email": toChannelStateResponse(n.Channels.Email),
			"sms":   toChannelStateResponse(n.Channels.SMS),
		},
		RelatedEvent:  n.RelatedEventID,
		RelatedTicket: n.RelatedTicketID,
		ExpiresAt:     n.ExpiresAt,
		ScheduledFor:  n.ScheduledFor,
		CreatedAt:     n.CreatedAt,
		UpdatedAt:     n.UpdatedAt,
	}

	if n.Action != nil {
		resp.Action = &actionPayload{
			Text: n.Action.Text,
			URL:  n.Action.URL,
			Type: n.Action.Type,
		}
	}

	return resp
}

func toChannelStateResponse(state domain.ChannelState) channelStateResponse {
	return channelStateResponse{
		Enabled:        state.Enabled,
		Sent:           state.Sent,
		SentAt:         state.SentAt,
		DeliveryStatus: state.DeliveryStatus,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
