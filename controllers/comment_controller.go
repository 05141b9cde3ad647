package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"inkpost-api/models"
	"inkpost-api/services"
	"inkpost-api/utils"
)

type CommentController struct {
	comments *services.CommentService
}

func NewCommentController(comments *services.CommentService) *CommentController {
	return &CommentController{comments: comments}
}

type CreateCommentRequest struct {
	PostID uint   `json:"post_id" form:"post_id" binding:"required"`
	Body   string `json:"body" form:"body" binding:"required,max=10000"`
}

type UpdateCommentRequest struct {
	Body string `json:"body" form:"body" binding:"required,max=10000"`
}

// GetComments lists the comments of ?post_id=, or every comment without it.
func (cc *CommentController) GetComments(c *gin.Context) {
	var postID *uint
	if raw := c.Query("post_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			fail(c, models.NewFieldError("post_id", "The post id field must be an integer."))
			return
		}
		v := uint(id)
		postID = &v
	}

	comments, err := cc.comments.List(c.Request.Context(), postID)
	if err != nil {
		fail(c, err)
		return
	}
	utils.SendSuccess(c, "Comments fetched Successfully", comments)
}

// GetCommentsByPost is the path-parameter form of GetComments.
func (cc *CommentController) GetCommentsByPost(c *gin.Context) {
	postID, ok := pathID(c, "postid", "Post")
	if !ok {
		return
	}
	comments, err := cc.comments.List(c.Request.Context(), &postID)
	if err != nil {
		fail(c, err)
		return
	}
	utils.SendSuccess(c, "Comments for the post fetched successfully", comments)
}

func (cc *CommentController) GetComment(c *gin.Context) {
	id, ok := pathID(c, "id", "Comment")
	if !ok {
		return
	}
	comment, err := cc.comments.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	utils.SendSuccess(c, "Comment fetched successfully", comment)
}

func (cc *CommentController) CreateComment(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var req CreateCommentRequest
	if !bind(c, &req) {
		return
	}

	comment, err := cc.comments.Create(c.Request.Context(), s, req.PostID, req.Body)
	if err != nil {
		fail(c, err)
		return
	}
	utils.SendCreated(c, "Comment added successfully", comment)
}

func (cc *CommentController) UpdateComment(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "Comment")
	if !ok {
		return
	}
	var req UpdateCommentRequest
	if !bind(c, &req) {
		return
	}

	comment, err := cc.comments.Update(c.Request.Context(), s, id, req.Body)
	if err != nil {
		fail(c, err)
		return
	}
	utils.SendSuccess(c, "Comment Updated Successfully", comment)
}

func (cc *CommentController) DeleteComment(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "Comment")
	if !ok {
		return
	}

	if err := cc.comments.Delete(c.Request.Context(), s, id); err != nil {
		fail(c, err)
		return
	}
	utils.SendSuccess(c, "Comment deleted Successfully", nil)
}
