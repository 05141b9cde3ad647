package controllers

import (
	"github.com/gin-gonic/gin"

	"inkpost-api/services"
	"inkpost-api/utils"
)

type TagController struct {
	tags *services.TagService
}

func NewTagController(tags *services.TagService) *TagController {
	return &TagController{tags: tags}
}

type CreateTagRequest struct {
	TagName          string  `json:"tag_name" form:"tag_name" binding:"required,max=255"`
	ShortDescription *string `json:"short_description" form:"short_description" binding:"omitempty,max=500"`
}

type UpdateTagRequest struct {
	TagName          *string `json:"tag_name" form:"tag_name" binding:"omitempty,max=255"`
	ShortDescription *string `json:"short_description" form:"short_description" binding:"omitempty,max=500"`
	RemoveImage      *bool   `json:"remove_image" form:"-"`
}

func (tc *TagController) GetTags(c *gin.Context) {
	tags, err := tc.tags.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	utils.SendSuccess(c, "Tags retrieved successfully", tags)
}

func (tc *TagController) GetTag(c *gin.Context) {
	id, ok := pathID(c, "id", "Tag")
	if !ok {
		return
	}
	tag, err := tc.tags.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	utils.SendSuccess(c, "Tag retrieved successfully", tag)
}

func (tc *TagController) CreateTag(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var req CreateTagRequest
	if !bind(c, &req) {
		return
	}

	image, closeImage, err := formUpload(c, "image")
	if err != nil {
		fail(c, err)
		return
	}
	defer closeImage()

	tag, err := tc.tags.Create(c.Request.Context(), s, services.CreateTagInput{
		TagName:          req.TagName,
		ShortDescription: req.ShortDescription,
		Image:            image,
	})
	if err != nil {
		fail(c, err)
		return
	}
	utils.SendCreated(c, "Tag created successfully", tag)
}

func (tc *TagController) UpdateTag(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "Tag")
	if !ok {
		return
	}
	var req UpdateTagRequest
	if !bindOptional(c, &req) {
		return
	}
	if isForm(c) {
		if v, ok := c.GetPostForm("remove_image"); ok {
			remove := truthy(v)
			req.RemoveImage = &remove
		}
	}

	image, closeImage, err := formUpload(c, "image")
	if err != nil {
		fail(c, err)
		return
	}
	defer closeImage()

	tag, err := tc.tags.Update(c.Request.Context(), s, id, services.UpdateTagInput{
		TagName:          req.TagName,
		ShortDescription: req.ShortDescription,
		Image:            image,
		RemoveImage:      req.RemoveImage != nil && *req.RemoveImage,
	})
	if err != nil {
		fail(c, err)
		return
	}
	utils.SendSuccess(c, "Tag updated successfully", tag)
}

func (tc *TagController) DeleteTag(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "Tag")
	if !ok {
		return
	}

	if err := tc.tags.Delete(c.Request.Context(), s, id); err != nil {
		fail(c, err)
		return
	}
	utils.SendSuccess(c, "Tag deleted successfully", nil)
}
