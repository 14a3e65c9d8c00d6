package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/slate/internal/store"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const userIDContextKey = "slate_user_id"

var (
	errMissingTokenManager  = errors.New("token manager dependency required")
	errMissingStoreService  = errors.New("store service dependency required")
	errInvalidAuthorization = errors.New("authorization header missing or invalid")
)

// SessionTokenManager issues and validates the tokens that identify the
// acting user on every request.
type SessionTokenManager interface {
	IssueSessionToken(ctx context.Context, userID string) (string, int64, error)
	ValidateToken(token string) (string, error)
}

// Dependencies carries the collaborators the HTTP handler needs.
type Dependencies struct {
	TokenManager SessionTokenManager
	Store        *store.Service
	Logger       *zap.Logger
}

// NewHTTPHandler wires the board API routes.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.Store == nil {
		return nil, errMissingStoreService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		tokens: deps.TokenManager,
		store:  deps.Store,
		logger: logger,
	}

	router.POST("/auth/session", handler.handleSession)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.POST("/boards", handler.handleCreateBoard)
	protected.GET("/boards", handler.handleListBoards)
	protected.DELETE("/boards/:boardID", handler.handleDeleteBoard)
	protected.POST("/boards/:boardID/objects", handler.handleCreateObject)
	protected.GET("/boards/:boardID/objects", handler.handleListObjects)
	protected.PATCH("/objects/:objectID", handler.handleUpdateObject)
	protected.GET("/boards/:boardID/events", handler.handleBoardEvents)

	return router, nil
}

type httpHandler struct {
	tokens SessionTokenManager
	store  *store.Service
	logger *zap.Logger
}

type sessionRequestPayload struct {
	UserID string `json:"user_id"`
}

type sessionResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (h *httpHandler) handleSession(c *gin.Context) {
	var request sessionRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.UserID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	token, expiresIn, err := h.tokens.IssueSessionToken(c.Request.Context(), strings.TrimSpace(request.UserID))
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	c.JSON(http.StatusOK, sessionResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	})
}

type boardPayload struct {
	BoardID          string `json:"board_id"`
	OwnerID          string `json:"owner_id"`
	Title            string `json:"title"`
	CreatedAtSeconds int64  `json:"created_at_s"`
	UpdatedAtSeconds int64  `json:"updated_at_s"`
}

type createBoardRequestPayload struct {
	BoardID string `json:"board_id"`
	Title   string `json:"title"`
}

func (h *httpHandler) handleCreateBoard(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	var request createBoardRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	boardID := strings.TrimSpace(request.BoardID)
	if boardID == "" {
		generated, err := uuid.NewV7()
		if err != nil {
			h.logger.Error("board id generation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "board_create_failed"})
			return
		}
		boardID = generated.String()
	}

	board, err := h.store.CreateBoard(c.Request.Context(), store.Board{
		BoardID: boardID,
		OwnerID: userID,
		Title:   strings.TrimSpace(request.Title),
	})
	if err != nil {
		h.logger.Error("board creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "board_create_failed"})
		return
	}

	c.JSON(http.StatusCreated, toBoardPayload(board))
}

func (h *httpHandler) handleListBoards(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	boards, err := h.store.ListBoards(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("board listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "board_list_failed"})
		return
	}

	payloads := make([]boardPayload, 0, len(boards))
	for _, board := range boards {
		payloads = append(payloads, toBoardPayload(board))
	}
	c.JSON(http.StatusOK, gin.H{"boards": payloads})
}

func (h *httpHandler) handleDeleteBoard(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	err := h.store.DeleteBoard(c.Request.Context(), c.Param("boardID"), userID)
	if errors.Is(err, store.ErrBoardNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "board_not_found"})
		return
	}
	if err != nil {
		h.logger.Error("board deletion failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "board_delete_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

type objectPayload struct {
	ObjectID         string          `json:"object_id"`
	BoardID          string          `json:"board_id"`
	Kind             string          `json:"kind"`
	UpdatedBy        string          `json:"updated_by"`
	Deleted          bool            `json:"deleted"`
	Attributes       json.RawMessage `json:"attributes"`
	CreatedAtSeconds int64           `json:"created_at_s"`
	UpdatedAtSeconds int64           `json:"updated_at_s"`
	Version          int64           `json:"version"`
}

type createObjectRequestPayload struct {
	ObjectID   string          `json:"object_id"`
	Kind       string          `json:"kind"`
	Attributes json.RawMessage `json:"attributes"`
}

func (h *httpHandler) handleCreateObject(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	var request createObjectRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.ObjectID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	attributesJSON := "{}"
	if len(request.Attributes) > 0 {
		attributesJSON = string(request.Attributes)
	}

	err := h.store.CreateObject(c.Request.Context(), store.Object{
		ObjectID:       strings.TrimSpace(request.ObjectID),
		BoardID:        c.Param("boardID"),
		Kind:           strings.ToUpper(strings.TrimSpace(request.Kind)),
		UpdatedBy:      userID,
		AttributesJSON: attributesJSON,
	})
	if err != nil {
		h.logger.Error("object creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "object_create_failed"})
		return
	}
	c.Status(http.StatusCreated)
}

func (h *httpHandler) handleListObjects(c *gin.Context) {
	includeDeleted := c.Query("include_deleted") == "true"
	objects, err := h.store.ListObjects(c.Request.Context(), c.Param("boardID"), includeDeleted)
	if err != nil {
		h.logger.Error("object listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "object_list_failed"})
		return
	}

	payloads := make([]objectPayload, 0, len(objects))
	for _, object := range objects {
		payloads = append(payloads, toObjectPayload(object))
	}
	c.JSON(http.StatusOK, gin.H{"objects": payloads})
}

type updateObjectRequestPayload struct {
	Attributes json.RawMessage `json:"attributes"`
	Deleted    *bool           `json:"deleted"`
}

func (h *httpHandler) handleUpdateObject(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	var request updateObjectRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	change := store.ObjectChange{
		ObjectID:  c.Param("objectID"),
		UpdatedBy: userID,
		Deleted:   request.Deleted,
	}
	if len(request.Attributes) > 0 {
		change.AttributesJSON = string(request.Attributes)
	}

	updated, err := h.store.UpdateObject(c.Request.Context(), change)
	if errors.Is(err, store.ErrObjectNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "object_not_found"})
		return
	}
	if err != nil {
		h.logger.Error("object update failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "object_update_failed"})
		return
	}
	c.JSON(http.StatusOK, toObjectPayload(updated))
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, subject)
	c.Next()
}

func toBoardPayload(board store.Board) boardPayload {
	return boardPayload{
		BoardID:          board.BoardID,
		OwnerID:          board.OwnerID,
		Title:            board.Title,
		CreatedAtSeconds: board.CreatedAtSeconds,
		UpdatedAtSeconds: board.UpdatedAtSeconds,
	}
}

func toObjectPayload(object store.Object) objectPayload {
	attributes := json.RawMessage("{}")
	if object.AttributesJSON != "" {
		attributes = json.RawMessage(object.AttributesJSON)
	}
	return objectPayload{
		ObjectID:         object.ObjectID,
		BoardID:          object.BoardID,
		Kind:             object.Kind,
		UpdatedBy:        object.UpdatedBy,
		Deleted:          object.Deleted,
		Attributes:       attributes,
		CreatedAtSeconds: object.CreatedAtSeconds,
		UpdatedAtSeconds: object.UpdatedAtSeconds,
		Version:          object.Version,
	}
}
