package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"tapevault/internal/auth"
	"tapevault/internal/catalog"
	"tapevault/internal/ingest"
	"tapevault/internal/logging"
	"tapevault/internal/media"
	"tapevault/internal/sourcepolicy"
)

// MediaHandler serves the media catalog API: uploads, listing, metadata,
// deletion, tags, and comments.
type MediaHandler struct {
	store              *catalog.Store
	coordinator        *ingest.Coordinator
	enableUserUploads  bool
	enableGuestUploads bool
	logger             *slog.Logger
}

// NewMediaHandler builds the catalog handler.
func NewMediaHandler(logger *slog.Logger, store *catalog.Store, coordinator *ingest.Coordinator, enableUserUploads, enableGuestUploads bool) *MediaHandler {
	return &MediaHandler{
		store:              store,
		coordinator:        coordinator,
		enableUserUploads:  enableUserUploads,
		enableGuestUploads: enableGuestUploads,
		logger:             logging.WithComponent(logger, "api"),
	}
}

// Register wires the media routes.
func (h *MediaHandler) Register(e *echo.Echo) {
	e.POST("/api/media", h.upload)
	e.GET("/api/media", h.list)
	e.GET("/api/media/:id", h.get)
	e.DELETE("/api/media/:id", h.remove)
	e.POST("/api/media/:id/tags", h.attachTag)
	e.DELETE("/api/media/:id/tags/:tagID", h.detachTag)
	e.GET("/api/media/:id/comments", h.comments)
	e.POST("/api/media/:id/comments", h.addComment)
}

func (h *MediaHandler) upload(c echo.Context) error {
	caller, err := auth.CallerFromContext(c)
	if err != nil {
		return err
	}

	meta, err := h.parseUploadForm(c, caller)
	if err != nil {
		return respondError(c, err)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "multipart field \"file\" is required"})
	}
	body, err := file.Open()
	if err != nil {
		return respondError(c, media.Wrap(media.ErrStreamRead, "api", "upload", "open multipart file", err))
	}
	defer body.Close()
	if meta.DeclaredMIME == "" {
		meta.DeclaredMIME = file.Header.Get("Content-Type")
	}

	visibility := media.VisibilityFamily
	if strings.EqualFold(c.FormValue("visibility"), string(media.VisibilityPrivate)) {
		visibility = media.VisibilityPrivate
	}

	asset, err := h.coordinator.Ingest(c.Request().Context(), ingest.Request{
		Meta:       *meta,
		Body:       body,
		UploadedBy: caller.UserID,
		Visibility: visibility,
	})
	if err != nil {
		return respondError(c, err)
	}

	if err := h.attachUploadTags(c, asset.ID, meta.Tags, caller.UserID); err != nil {
		h.logger.Warn("attach upload tags",
			slog.String(logging.FieldAssetID, asset.ID), logging.Error(err))
	}
	tags, err := h.store.AssetTags(c.Request().Context(), asset.ID)
	if err != nil {
		tags = meta.Tags
	}
	return c.JSON(http.StatusCreated, toAssetResponse(asset, tags))
}

func (h *MediaHandler) parseUploadForm(c echo.Context, caller auth.Caller) (*sourcepolicy.Metadata, error) {
	kind, ok := media.ParseKind(c.FormValue("kind"))
	if !ok {
		return nil, media.Wrap(media.ErrInvalidMediaType, "api", "upload",
			"kind must be PHOTO or VIDEO", nil)
	}
	sourceKind, ok := media.ParseSourceKind(c.FormValue("source_kind"))
	if !ok {
		return nil, media.Wrap(media.ErrInvalidMediaType, "api", "upload",
			"unknown source_kind", nil)
	}
	if err := h.authorizeSource(sourceKind, caller); err != nil {
		return nil, err
	}

	meta := &sourcepolicy.Metadata{
		Kind:         kind,
		SourceKind:   sourceKind,
		Title:        c.FormValue("title"),
		Description:  c.FormValue("description"),
		TapeNumber:   c.FormValue("tape_number"),
		DeclaredMIME: c.FormValue("mime"),
	}
	if raw := strings.TrimSpace(c.FormValue("captured_at")); raw != "" {
		captured, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, media.Wrap(media.ErrInvalidMediaType, "api", "upload",
				"captured_at must be RFC 3339", err)
		}
		meta.CapturedAt = &captured
	}
	if raw := strings.TrimSpace(c.FormValue("tags")); raw != "" {
		meta.Tags = strings.Split(raw, ",")
	}
	return meta, nil
}

// authorizeSource keeps upload channels aligned with who is calling:
// guests only use the guest channel, and both direct-upload channels can
// be switched off in configuration.
func (h *MediaHandler) authorizeSource(kind media.SourceKind, caller auth.Caller) error {
	switch kind {
	case media.SourceUserUpload:
		if !h.enableUserUploads {
			return media.Wrap(media.ErrForbiddenField, "api", "upload",
				"user uploads are disabled", nil)
		}
		if caller.Role == catalog.RoleGuest {
			return media.Wrap(media.ErrForbiddenField, "api", "upload",
				"guests must use the guest upload channel", nil)
		}
	case media.SourceGuestUpload:
		if !h.enableGuestUploads {
			return media.Wrap(media.ErrForbiddenField, "api", "upload",
				"guest uploads are disabled", nil)
		}
	default:
		if caller.Role == catalog.RoleGuest {
			return media.Wrap(media.ErrForbiddenField, "api", "upload",
				"guests may not register imported media", nil)
		}
	}
	return nil
}

func (h *MediaHandler) attachUploadTags(c echo.Context, assetID string, names []string, userID string) error {
	ctx := c.Request().Context()
	for _, name := range names {
		tag, err := h.store.EnsureTag(ctx, name)
		if err != nil {
			return err
		}
		if err := h.store.AttachTag(ctx, assetID, tag.ID, userID); err != nil {
			return err
		}
	}
	return nil
}

func (h *MediaHandler) list(c echo.Context) error {
	filter := catalog.AssetFilter{
		TapeNumber: c.QueryParam("tape_number"),
	}
	if raw := c.QueryParam("source_kind"); raw != "" {
		kind, ok := media.ParseSourceKind(raw)
		if !ok {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "unknown source_kind"})
		}
		filter.SourceKind = kind
	}
	if raw := c.QueryParam("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "from must be RFC 3339"})
		}
		filter.DateFrom = &from
	}
	if raw := c.QueryParam("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "to must be RFC 3339"})
		}
		filter.DateTo = &to
	}
	if raw := c.QueryParam("tag"); raw != "" {
		tag, err := h.store.TagByName(c.Request().Context(), raw)
		if err != nil {
			return respondError(c, media.Wrap(media.ErrStorageFailure, "api", "list", "tag lookup", err))
		}
		if tag == nil {
			return c.JSON(http.StatusOK, []AssetResponse{})
		}
		filter.TagID = tag.ID
	}
	if raw := c.QueryParam("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			filter.Limit = limit
		}
	}
	if raw := c.QueryParam("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil {
			filter.Offset = offset
		}
	}

	assets, err := h.store.ListAssets(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, media.Wrap(media.ErrStorageFailure, "api", "list", "list assets", err))
	}
	responses := make([]AssetResponse, 0, len(assets))
	for _, asset := range assets {
		responses = append(responses, toAssetResponse(asset, nil))
	}
	return c.JSON(http.StatusOK, responses)
}

func (h *MediaHandler) get(c echo.Context) error {
	asset, err := h.lookup(c)
	if err != nil {
		return respondError(c, err)
	}
	tags, err := h.store.AssetTags(c.Request().Context(), asset.ID)
	if err != nil {
		return respondError(c, media.Wrap(media.ErrStorageFailure, "api", "get", "asset tags", err))
	}
	return c.JSON(http.StatusOK, toAssetResponse(asset, tags))
}

func (h *MediaHandler) remove(c echo.Context) error {
	caller, err := auth.CallerFromContext(c)
	if err != nil {
		return err
	}
	asset, err := h.lookup(c)
	if err != nil {
		return respondError(c, err)
	}
	if !caller.IsAdmin() && asset.UploadedBy != caller.UserID {
		return c.JSON(http.StatusForbidden, ErrorResponse{Message: "only the uploader or an admin may delete"})
	}
	if err := h.coordinator.Delete(c.Request().Context(), asset.ID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *MediaHandler) attachTag(c echo.Context) error {
	caller, err := auth.CallerFromContext(c)
	if err != nil {
		return err
	}
	asset, err := h.lookup(c)
	if err != nil {
		return respondError(c, err)
	}
	var req TagRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "tag name is required"})
	}
	ctx := c.Request().Context()
	tag, err := h.store.EnsureTag(ctx, req.Name)
	if err != nil {
		return respondError(c, media.Wrap(media.ErrStorageFailure, "api", "tag", "ensure tag", err))
	}
	if err := h.store.AttachTag(ctx, asset.ID, tag.ID, caller.UserID); err != nil {
		return c.JSON(http.StatusConflict, ErrorResponse{Message: err.Error()})
	}
	tags, err := h.store.AssetTags(ctx, asset.ID)
	if err != nil {
		return respondError(c, media.Wrap(media.ErrStorageFailure, "api", "tag", "asset tags", err))
	}
	return c.JSON(http.StatusOK, toAssetResponse(asset, tags))
}

func (h *MediaHandler) detachTag(c echo.Context) error {
	caller, err := auth.CallerFromContext(c)
	if err != nil {
		return err
	}
	asset, err := h.lookup(c)
	if err != nil {
		return respondError(c, err)
	}
	tagID, err := strconv.ParseInt(c.Param("tagID"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "tag id must be numeric"})
	}
	createdBy, err := h.store.DetachTag(c.Request().Context(), asset.ID, tagID)
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{Message: err.Error()})
	}
	if !caller.IsAdmin() && createdBy != "" && createdBy != caller.UserID {
		// Put it back rather than letting an unauthorized detach stand.
		if err := h.store.AttachTag(c.Request().Context(), asset.ID, tagID, createdBy); err != nil {
			h.logger.Error("restore tag after denied detach",
				slog.String(logging.FieldAssetID, asset.ID), logging.Error(err))
		}
		return c.JSON(http.StatusForbidden, ErrorResponse{Message: "only the tagger or an admin may detach"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *MediaHandler) comments(c echo.Context) error {
	asset, err := h.lookup(c)
	if err != nil {
		return respondError(c, err)
	}
	comments, err := h.store.Comments(c.Request().Context(), asset.ID)
	if err != nil {
		return respondError(c, media.Wrap(media.ErrStorageFailure, "api", "comments", "list comments", err))
	}
	responses := make([]CommentResponse, 0, len(comments))
	for _, comment := range comments {
		responses = append(responses, toCommentResponse(comment))
	}
	return c.JSON(http.StatusOK, responses)
}

func (h *MediaHandler) addComment(c echo.Context) error {
	caller, err := auth.CallerFromContext(c)
	if err != nil {
		return err
	}
	asset, err := h.lookup(c)
	if err != nil {
		return respondError(c, err)
	}
	var req CommentRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Body) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "comment body is required"})
	}
	comment, err := h.store.AddComment(c.Request().Context(), asset.ID, caller.UserID, req.Body)
	if err != nil {
		return respondError(c, media.Wrap(media.ErrStorageFailure, "api", "comments", "insert comment", err))
	}
	return c.JSON(http.StatusCreated, toCommentResponse(comment))
}

// lookup fetches the asset named by the :id path parameter, treating
// soft-deleted rows as absent.
func (h *MediaHandler) lookup(c echo.Context) (*media.Asset, error) {
	id := c.Param("id")
	asset, err := h.store.GetAsset(c.Request().Context(), id)
	if err != nil {
		return nil, media.Wrap(media.ErrStorageFailure, "api", "lookup", "get asset", err)
	}
	if asset == nil || asset.IsDeleted() {
		return nil, media.Wrap(media.ErrNotFound, "api", "lookup", id, nil)
	}
	return asset, nil
}
