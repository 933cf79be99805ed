package handler

import (
	"encoding/json"
	"mime"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docvault/internal/access"
	"docvault/internal/http/middleware"
	"docvault/internal/model"
	"docvault/internal/service"
)

// uploadResponse is the 202 body of both upload endpoints.
type uploadResponse struct {
	Message  string                 `json:"message"`
	Document *model.Document        `json:"document,omitempty"`
	Version  *model.DocumentVersion `json:"version"`
}

type updateRequest struct {
	AccessLevel *string `json:"accessLevel"`
	// Tags is either a JSON array or a comma-separated string.
	Tags json.RawMessage `json:"tags"`
}

type updateResponse struct {
	Message  string          `json:"message"`
	Document *model.Document `json:"document"`
}

func actorOf(c *fiber.Ctx) (access.Actor, error) {
	a, ok := middleware.ActorFrom(c)
	if !ok {
		return access.Actor{}, fiber.ErrUnauthorized
	}
	return a, nil
}

// uuidParam returns the named path parameter if it is a valid UUID.
func uuidParam(c *fiber.Ctx, name string) (string, error) {
	id := c.Params(name)
	if _, err := uuid.Parse(id); err != nil {
		return "", badRequest("INVALID_ID", "invalid id format")
	}
	return id, nil
}

// pageQuery parses page and limit. Missing values are left at zero for the
// paginator to default.
func pageQuery(c *fiber.Ctx) (page, limit int, err error) {
	if v := c.Query("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil {
			return 0, 0, badRequest("INVALID_PAGE", "invalid page")
		}
	}
	if v := c.Query("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			return 0, 0, badRequest("INVALID_LIMIT", "invalid limit")
		}
	}
	return page, limit, nil
}

// uploadInput opens the multipart "file" field. The caller must close the
// returned reader.
func uploadInput(c *fiber.Ctx) (service.UploadInput, func() error, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return service.UploadInput{}, nil, badRequest("FILE_REQUIRED", "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return service.UploadInput{}, nil, badRequest("FILE_OPEN_ERROR", "cannot open uploaded file")
	}

	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	return service.UploadInput{
		Reader:      f,
		Filename:    fh.Filename,
		ContentType: ct,
		Size:        fh.Size,
		AccessLevel: c.FormValue("accessLevel"),
		Tags:        c.FormValue("tags"),
	}, f.Close, nil
}

// UploadDocument handles POST /api/documents (multipart/form-data, fields:
// file, accessLevel, tags).
func UploadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}
		in, closeFile, err := uploadInput(c)
		if err != nil {
			return fail(c, err)
		}
		defer closeFile()

		res, err := svc.Upload(c.UserContext(), actor, in)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(uploadResponse{
			Message:  "File accepted for processing. It will be available after a virus scan.",
			Document: res.Document,
			Version:  res.Version,
		})
	}
}

// UploadVersion handles POST /api/documents/:id/versions.
func UploadVersion(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}
		id, err := uuidParam(c, "id")
		if err != nil {
			return fail(c, err)
		}
		in, closeFile, err := uploadInput(c)
		if err != nil {
			return fail(c, err)
		}
		defer closeFile()

		v, err := svc.UploadVersion(c.UserContext(), actor, id, in)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(uploadResponse{
			Message: "New version accepted for processing. It will be available after a virus scan.",
			Version: v,
		})
	}
}

// ListDocuments handles GET /api/documents?tag=&page=&limit=.
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}
		page, limit, err := pageQuery(c)
		if err != nil {
			return fail(c, err)
		}

		res, err := svc.List(c.UserContext(), actor, service.ListParams{
			Tag:   strings.TrimSpace(c.Query("tag")),
			Page:  page,
			Limit: limit,
		})
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(res)
	}
}

// SearchDocuments handles GET /api/documents/search?q=&page=&limit=.
func SearchDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}
		page, limit, err := pageQuery(c)
		if err != nil {
			return fail(c, err)
		}

		res, err := svc.Search(c.UserContext(), actor, service.SearchParams{
			Query: c.Query("q"),
			Page:  page,
			Limit: limit,
		})
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(res)
	}
}

// ListVersions handles GET /api/documents/:id/versions.
func ListVersions(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}
		id, err := uuidParam(c, "id")
		if err != nil {
			return fail(c, err)
		}

		versions, err := svc.ListVersions(c.UserContext(), actor, id)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(versions)
	}
}

// DownloadVersion handles GET /api/documents/versions/:versionId/download
// and streams the content as an attachment named after the document.
func DownloadVersion(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}
		id, err := uuidParam(c, "versionId")
		if err != nil {
			return fail(c, err)
		}

		res, err := svc.Download(c.UserContext(), actor, id)
		if err != nil {
			return fail(c, err)
		}

		ct := res.Version.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		c.Set(fiber.HeaderContentType, ct)
		c.Set(fiber.HeaderContentDisposition,
			mime.FormatMediaType("attachment", map[string]string{"filename": res.Document.OriginalFilename}))

		size := -1
		if res.Info.Size > 0 {
			size = int(res.Info.Size)
		}
		// The body is closed by fasthttp once fully written.
		return c.SendStream(res.Body, size)
	}
}

// UpdateDocument handles PUT /api/documents/:id with a JSON body of
// accessLevel and/or tags.
func UpdateDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}
		id, err := uuidParam(c, "id")
		if err != nil {
			return fail(c, err)
		}

		var req updateRequest
		if err := c.BodyParser(&req); err != nil {
			return fail(c, badRequest("INVALID_BODY", "invalid request body"))
		}
		tags, err := rawTags(req.Tags)
		if err != nil {
			return fail(c, badRequest("INVALID_TAGS", "tags must be a string or an array of strings"))
		}

		doc, err := svc.Update(c.UserContext(), actor, id, service.UpdateInput{
			AccessLevel: req.AccessLevel,
			Tags:        tags,
		})
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(updateResponse{Message: "Document updated successfully.", Document: doc})
	}
}

// rawTags flattens the tags field to the comma-separated form the service
// parses. Absent or null means "keep".
func rawTags(raw json.RawMessage) (*string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	joined := strings.Join(list, ",")
	return &joined, nil
}

// DeleteDocument handles DELETE /api/documents/:id.
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}
		id, err := uuidParam(c, "id")
		if err != nil {
			return fail(c, err)
		}

		if err := svc.Delete(c.UserContext(), actor, id); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
