package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"inkpost-api/middleware"
	"inkpost-api/models"
	"inkpost-api/services"
	"inkpost-api/utils"
)

// fail attaches err to the context and stops the chain. middleware.ErrorHandler renders it.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// bind decodes a JSON, urlencoded or multipart body into req and validates it. An empty
// body is validated as the zero request so required fields are reported one by one.
// On failure it writes the validation envelope and returns false.
func bind(c *gin.Context, req interface{}) bool {
	var err error
	if c.Request.ContentLength == 0 {
		err = binding.Validator.ValidateStruct(req)
	} else {
		err = c.ShouldBind(req)
	}
	if err != nil {
		fail(c, models.NewValidationError("", utils.BindingErrors(err)))
		return false
	}
	return true
}

// bindOptional is bind for partial updates, where an empty body changes nothing.
func bindOptional(c *gin.Context, req interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return bind(c, req)
}

func isForm(c *gin.Context) bool {
	ct := c.ContentType()
	return ct == gin.MIMEMultipartPOSTForm || ct == gin.MIMEPOSTForm
}

// session returns the caller resolved by middleware.Auth.
func session(c *gin.Context) (services.Session, bool) {
	s, ok := middleware.SessionFrom(c)
	if !ok {
		fail(c, models.NewUnauthenticatedError("Unauthenticated."))
	}
	return s, ok
}

// pathID parses the :id segment. A malformed id is reported as a missing resource.
func pathID(c *gin.Context, param, resource string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		fail(c, models.NewNotFoundError(resource))
		return 0, false
	}
	return uint(id), true
}

// formUpload returns the multipart file named field, or nil when the request carries none.
// The caller must call the returned close function.
func formUpload(c *gin.Context, field string) (*services.Upload, func(), error) {
	noop := func() {}
	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		return nil, noop, nil
	}

	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, noop, nil
		}
		return nil, noop, err
	}

	f, err := header.Open()
	if err != nil {
		return nil, noop, err
	}
	return &services.Upload{
		Filename:    header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Content:     f,
	}, func() { f.Close() }, nil
}

// formTagIDs reads tag ids sent as repeated "tags" or "tags[]" form fields. The second
// result is false when neither key is present.
func formTagIDs(c *gin.Context) ([]uint, bool, error) {
	var raw []string
	present := false
	for _, key := range []string{"tags", "tags[]"} {
		if values, ok := c.GetPostFormArray(key); ok {
			present = true
			raw = append(raw, values...)
		}
	}

	ids := make([]uint, 0, len(raw))
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseUint(part, 10, 64)
			if err != nil {
				return nil, true, models.NewFieldError("tags", "The tags field must contain tag ids.")
			}
			ids = append(ids, uint(id))
		}
	}
	return ids, present, nil
}

// truthy accepts the spellings browsers and form libraries use for a checked flag.
func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
