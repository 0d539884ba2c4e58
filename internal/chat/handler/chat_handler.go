package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"moogtchat/internal/chat/service"
	"moogtchat/internal/common"
	"moogtchat/internal/dbmysql"
)

// ChatHandler binds the conversation/messaging surface onto HTTP.
type ChatHandler struct {
	chatService service.ChatService
}

func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Register attaches every route to the (already authenticated) router.
func (h *ChatHandler) Register(r *mux.Router) {
	r.HandleFunc("/conversations", h.ListConversations).Methods(http.MethodGet)
	r.HandleFunc("/conversations/recent", h.RecentConversations).Methods(http.MethodGet)
	r.HandleFunc("/conversations/unread-count", h.UnreadCounts).Methods(http.MethodGet)
	r.HandleFunc("/conversations/with/{user_id}", h.GetOrCreateConversation).Methods(http.MethodPost)
	r.HandleFunc("/conversations/{id}/priority", h.Prioritize).Methods(http.MethodPost)
	r.HandleFunc("/conversations/{id}/priority", h.Unprioritize).Methods(http.MethodDelete)
	r.HandleFunc("/conversations/{id}/read", h.MarkRead).Methods(http.MethodPost)
	r.HandleFunc("/conversations/{id}/messages", h.ListMessages).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{id}/activity", h.ConversationActivity).Methods(http.MethodGet)
	r.HandleFunc("/messages", h.SendMessage).Methods(http.MethodPost)
	r.HandleFunc("/messages/reply", h.Reply).Methods(http.MethodPost)
	r.HandleFunc("/messages/{id}/forward", h.Forward).Methods(http.MethodPost)
	r.HandleFunc("/messages/{id}", h.DeleteMessage).Methods(http.MethodDelete)
}

type conversationResponse struct {
	ID           string               `json:"id"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
	IsLocked     bool                 `json:"is_locked"`
	Participants []dbmysql.Participant `json:"participants"`
	LastMessage  string               `json:"last_message"`
	UnreadCount  int64                `json:"unread_count"`
	Type         string               `json:"type"`
}

func toConversationResponse(v *dbmysql.ConversationView, kind common.InboxKind) conversationResponse {
	listType := "general"
	if kind == common.InboxPriority {
		listType = "priority"
	}
	return conversationResponse{
		ID:           v.ID,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
		IsLocked:     v.IsLocked,
		Participants: v.Participants,
		LastMessage:  v.LastMessage,
		UnreadCount:  v.UnreadMessagesCount(),
		Type:         listType,
	}
}

func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	viewer, ok := common.ViewerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	kind := common.InboxKind(r.URL.Query().Get("kind"))
	views, err := h.chatService.ListConversations(r.Context(), viewer, kind)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]conversationResponse, 0, len(views))
	for i := range views {
		out = append(out, toConversationResponse(&views[i], kind))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"conversations": out})
}

func (h *ChatHandler) RecentConversations(w http.ResponseWriter, r *http.Request) {
	viewer, ok := common.ViewerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	views, err := h.chatService.RecentConversations(r.Context(), viewer)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]conversationResponse, 0, len(views))
	for i := range views {
		out = append(out, toConversationResponse(&views[i], common.InboxUnrestricted))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"conversations": out})
}

func (h *ChatHandler) UnreadCounts(w http.ResponseWriter, r *http.Request) {
	viewer, ok := common.ViewerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	counts, err := h.chatService.UnreadCounts(r.Context(), viewer)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (h *ChatHandler) GetOrCreateConversation(w http.ResponseWriter, r *http.Request) {
	viewer, ok := common.ViewerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	otherID := mux.Vars(r)["user_id"]

	conv, created, err := h.chatService.GetOrCreateConversation(r.Context(), viewer, otherID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, conv)
}

func (h *ChatHandler) Prioritize(w http.ResponseWriter, r *http.Request) {
	viewer, ok := common.ViewerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	if err := h.chatService.Prioritize(r.Context(), viewer, mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "prioritized"})
}

func (h *ChatHandler) Unprioritize(w http.ResponseWriter, r *http.Request) {
	viewer, ok := common.ViewerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	if err := h.chatService.Unprioritize(r.Context(), viewer, mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unprioritized"})
}

func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	viewer, ok := common.ViewerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var body struct {
		ReadBeforeDate *time.Time `json:"read_before_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.ReadBeforeDate == nil {
		writeError(w, http.StatusBadRequest, "read_before_date is required")
		return
	}

	if err := h.chatService.MarkConversationRead(r.Context(), viewer, mux.Vars(r)["id"], *body.ReadBeforeDate); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	viewer, ok := common.ViewerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	items, err := h.chatService.ConversationTimeline(r.Context(), viewer, mux.Vars(r)["id"], limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": items})
}

func (h *ChatHandler) ConversationActivity(w http.ResponseWriter, r *http.Request) {
	viewer, ok := common.ViewerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	summaries, err := h.chatService.ConversationActivity(r.Context(), viewer, mux.Vars(r)["id"], int64(queryInt(r, "limit", 0)))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"summaries": summaries})
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	viewer, ok := common.ViewerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var in service.SendMessageInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.chatService.SendRegularMessage(r.Context(), viewer, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *ChatHandler) Reply(w http.ResponseWriter, r *http.Request) {
	viewer, ok := common.ViewerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var in service.ReplyInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.chatService.ReplyToMessage(r.Context(), viewer, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *ChatHandler) Forward(w http.ResponseWriter, r *http.Request) {
	viewer, ok := common.ViewerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	messageID, err := pathUint(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	var body struct {
		RecipientID string `json:"recipient_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.chatService.ForwardMessage(r.Context(), viewer, messageID, body.RecipientID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *ChatHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	viewer, ok := common.ViewerID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	messageID, err := pathUint(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	if err := h.chatService.DeleteMessage(r.Context(), viewer, messageID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func pathUint(r *http.Request, key string) (uint, error) {
	raw := mux.Vars(r)[key]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the error taxonomy onto status codes so clients can
// tell "doesn't exist" apart from "not yours".
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, common.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, common.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
