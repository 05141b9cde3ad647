package controllers

import (
	"github.com/gin-gonic/gin"

	"inkpost-api/services"
	"inkpost-api/utils"
)

type PostController struct {
	posts      *services.PostService
	engagement *services.EngagementService
}

func NewPostController(posts *services.PostService, engagement *services.EngagementService) *PostController {
	return &PostController{posts: posts, engagement: engagement}
}

// CreatePostRequest is accepted as JSON or as a form. Form clients send tags as repeated
// "tags" or "tags[]" fields.
type CreatePostRequest struct {
	Title            string  `json:"title" form:"title" binding:"required,max=255"`
	ShortDescription *string `json:"short_description" form:"short_description" binding:"omitempty,max=500"`
	Content          string  `json:"content" form:"content" binding:"required"`
	Tags             []uint  `json:"tags" form:"-"`
}

type UpdatePostRequest struct {
	Title              *string `json:"title" form:"title" binding:"omitempty,max=255"`
	ShortDescription   *string `json:"short_description" form:"short_description" binding:"omitempty,max=500"`
	Content            *string `json:"content" form:"content"`
	Tags               *[]uint `json:"tags" form:"-"`
	RemoveFeatureImage *bool   `json:"remove_feature_image" form:"-"`
}

func (pc *PostController) GetPosts(c *gin.Context) {
	posts, err := pc.posts.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	utils.SendSuccess(c, "Posts retrieved successfully", posts)
}

// GetPost looks the post up by slug.
func (pc *PostController) GetPost(c *gin.Context) {
	post, err := pc.posts.GetBySlug(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	utils.SendSuccess(c, "Post retrieved successfully", post)
}

func (pc *PostController) GetCreatedPosts(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	posts, err := pc.posts.ListCreated(c.Request.Context(), s)
	if err != nil {
		fail(c, err)
		return
	}
	utils.SendSuccess(c, "Posts retrieved successfully", posts)
}

func (pc *PostController) CreatePost(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}

	var req CreatePostRequest
	if !bind(c, &req) {
		return
	}
	if isForm(c) {
		ids, _, err := formTagIDs(c)
		if err != nil {
			fail(c, err)
			return
		}
		req.Tags = ids
	}

	image, closeImage, err := formUpload(c, "feature_image")
	if err != nil {
		fail(c, err)
		return
	}
	defer closeImage()

	post, err := pc.posts.Create(c.Request.Context(), s, services.CreatePostInput{
		Title:            req.Title,
		ShortDescription: req.ShortDescription,
		Content:          req.Content,
		TagIDs:           req.Tags,
		FeatureImage:     image,
	})
	if err != nil {
		fail(c, err)
		return
	}
	utils.SendCreated(c, "Post Created Successfully", post)
}

// UpdatePost serves both PUT and POST so multipart clients that cannot send PUT bodies
// can still replace the feature image.
func (pc *PostController) UpdatePost(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	postID, ok := pathID(c, "id", "Post")
	if !ok {
		return
	}

	var req UpdatePostRequest
	if !bindOptional(c, &req) {
		return
	}
	if isForm(c) {
		ids, present, err := formTagIDs(c)
		if err != nil {
			fail(c, err)
			return
		}
		if present {
			req.Tags = &ids
		}
		if v, ok := c.GetPostForm("remove_feature_image"); ok {
			remove := truthy(v)
			req.RemoveFeatureImage = &remove
		}
	}

	image, closeImage, err := formUpload(c, "feature_image")
	if err != nil {
		fail(c, err)
		return
	}
	defer closeImage()

	post, err := pc.posts.Update(c.Request.Context(), s, postID, services.UpdatePostInput{
		Title:              req.Title,
		ShortDescription:   req.ShortDescription,
		Content:            req.Content,
		TagIDs:             req.Tags,
		FeatureImage:       image,
		RemoveFeatureImage: req.RemoveFeatureImage != nil && *req.RemoveFeatureImage,
	})
	if err != nil {
		fail(c, err)
		return
	}
	utils.SendSuccess(c, "Post updated successfully", post)
}

func (pc *PostController) DeletePost(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	postID, ok := pathID(c, "id", "Post")
	if !ok {
		return
	}

	if err := pc.posts.Delete(c.Request.Context(), s, postID); err != nil {
		fail(c, err)
		return
	}
	utils.SendSuccess(c, "Post deleted successfully", nil)
}

func (pc *PostController) LikePost(c *gin.Context) {
	pc.toggleLike(c, true)
}

func (pc *PostController) UnlikePost(c *gin.Context) {
	pc.toggleLike(c, false)
}

func (pc *PostController) toggleLike(c *gin.Context, like bool) {
	s, ok := session(c)
	if !ok {
		return
	}
	postID, ok := pathID(c, "id", "Post")
	if !ok {
		return
	}

	toggle, message := pc.engagement.Unlike, "Post unliked"
	if like {
		toggle, message = pc.engagement.Like, "Post liked"
	}
	state, err := toggle(c.Request.Context(), s, postID)
	if err != nil {
		fail(c, err)
		return
	}
	utils.SendSuccess(c, message, state)
}

func (pc *PostController) SavePost(c *gin.Context) {
	pc.toggleSave(c, true)
}

func (pc *PostController) UnsavePost(c *gin.Context) {
	pc.toggleSave(c, false)
}

func (pc *PostController) toggleSave(c *gin.Context, save bool) {
	s, ok := session(c)
	if !ok {
		return
	}
	postID, ok := pathID(c, "id", "Post")
	if !ok {
		return
	}

	toggle, message := pc.engagement.Unsave, "Post unsaved successfully."
	if save {
		toggle, message = pc.engagement.Save, "Post saved"
	}
	state, err := toggle(c.Request.Context(), s, postID)
	if err != nil {
		fail(c, err)
		return
	}
	utils.SendSuccess(c, message, state)
}

// GetSavedPosts returns the ids of the posts the caller bookmarked.
func (pc *PostController) GetSavedPosts(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	ids, err := pc.engagement.SavedPostIDs(c.Request.Context(), s)
	if err != nil {
		fail(c, err)
		return
	}
	utils.SendSuccess(c, "Saved posts retrieved successfully", ids)
}

func (pc *PostController) GetLikedPosts(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	ids, err := pc.engagement.LikedPostIDs(c.Request.Context(), s)
	if err != nil {
		fail(c, err)
		return
	}
	utils.SendSuccess(c, "Liked posts retrieved successfully", ids)
}
