package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"inkpost-api/models"
	"inkpost-api/repositories"
	"inkpost-api/utils"
)

const (
	MaxTitleLength            = 255
	MaxShortDescriptionLength = 500
	MaxPostTags               = 5
	postImageDir              = "post_images"
	slugAttempts              = 3
)

type CreatePostInput struct {
	Title            string
	ShortDescription *string
	Content          string
	TagIDs           []uint
	FeatureImage     *Upload
}

// UpdatePostInput is a partial update. Tags, when non-nil, replaces the whole tag set.
type UpdatePostInput struct {
	Title              *string
	ShortDescription   *string
	Content            *string
	TagIDs             *[]uint
	FeatureImage       *Upload
	RemoveFeatureImage bool
}

type PostService struct {
	posts         *repositories.PostRepository
	tags          *repositories.TagRepository
	storage       Storage
	maxImageBytes int64
}

func NewPostService(posts *repositories.PostRepository, tags *repositories.TagRepository, storage Storage, maxImageBytes int64) *PostService {
	return &PostService{
		posts:         posts,
		tags:          tags,
		storage:       storage,
		maxImageBytes: maxImageBytes,
	}
}

// featureImageURLs resolves FeatureImageURL for every post that carries an image. Each
// service that hands posts out, directly or nested, goes through it.
func featureImageURLs(storage Storage, posts []models.Post) []models.Post {
	for i := range posts {
		if img := posts[i].FeatureImage; img != nil && *img != "" {
			posts[i].FeatureImageURL = storage.URL(*img)
		}
	}
	return posts
}

func (s *PostService) decorate(post *models.Post) {
	if post.FeatureImage != nil && *post.FeatureImage != "" {
		post.FeatureImageURL = s.storage.URL(*post.FeatureImage)
	}
}

func (s *PostService) decorateAll(posts []models.Post) []models.Post {
	return featureImageURLs(s.storage, posts)
}

func (s *PostService) List(ctx context.Context) ([]models.Post, error) {
	posts, err := s.posts.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.decorateAll(posts), nil
}

// ListCreated returns the caller's own posts.
func (s *PostService) ListCreated(ctx context.Context, session Session) ([]models.Post, error) {
	posts, err := s.posts.ListByUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return s.decorateAll(posts), nil
}

func (s *PostService) ListSaved(ctx context.Context, session Session) ([]models.Post, error) {
	posts, err := s.posts.ListSavedBy(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return s.decorateAll(posts), nil
}

func (s *PostService) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	post, err := s.posts.FindBySlug(ctx, slug)
	if err != nil {
		return nil, notFoundOr(err, "Post")
	}
	s.decorate(post)
	return post, nil
}

func (s *PostService) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Post")
	}
	s.decorate(post)
	return post, nil
}

func (s *PostService) Create(ctx context.Context, session Session, in CreatePostInput) (*models.Post, error) {
	var vb models.ValidationBuilder

	title := strings.TrimSpace(in.Title)
	validateTitle(&vb, title)
	shortDescription := normalizeOptional(in.ShortDescription)
	validateShortDescription(&vb, shortDescription)
	if strings.TrimSpace(in.Content) == "" {
		vb.Add("content", "The content field is required.")
	}
	tagIDs, err := s.validateTags(ctx, &vb, in.TagIDs)
	if err != nil {
		return nil, err
	}
	image, err := s.validateImage(&vb, in.FeatureImage)
	if err != nil {
		return nil, err
	}
	if err := vb.Err(); err != nil {
		return nil, err
	}

	var imagePath *string
	if image != nil {
		stored, err := s.storage.Put(ctx, fmt.Sprintf("%s/%d", postImageDir, session.UserID), image)
		if err != nil {
			return nil, err
		}
		imagePath = &stored
	}

	post := &models.Post{
		UserID:           session.UserID,
		Title:            title,
		ShortDescription: shortDescription,
		Content:          in.Content,
		FeatureImage:     imagePath,
	}

	// A concurrent writer can claim the same slug between the check and the insert; the
	// unique index catches it and the next attempt picks the following suffix.
	for attempt := 1; ; attempt++ {
		post.ID = 0
		post.Slug, err = s.uniqueSlug(ctx, title, 0)
		if err != nil {
			break
		}
		err = s.posts.Create(ctx, post, tagIDs)
		if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) || attempt == slugAttempts {
			break
		}
	}
	if err != nil {
		if imagePath != nil {
			discardAsset(ctx, s.storage, *imagePath)
		}
		return nil, translatePostError(err)
	}

	return s.GetByID(ctx, post.ID)
}

func (s *PostService) Update(ctx context.Context, session Session, postID uint, in UpdatePostInput) (*models.Post, error) {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, notFoundOr(err, "Post")
	}
	if post.UserID != session.UserID {
		return nil, models.NewForbiddenError("You cannot update this post")
	}

	var vb models.ValidationBuilder
	fields := map[string]interface{}{}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		validateTitle(&vb, title)
		if !vb.Has("title") && title != post.Title {
			fields["title"] = title
		}
	}
	if in.ShortDescription != nil {
		shortDescription := normalizeOptional(in.ShortDescription)
		validateShortDescription(&vb, shortDescription)
		fields["short_description"] = shortDescription
	}
	if in.Content != nil {
		if strings.TrimSpace(*in.Content) == "" {
			vb.Add("content", "The content field is required.")
		}
		fields["content"] = *in.Content
	}

	var tagIDs []uint
	if in.TagIDs != nil {
		tagIDs, err = s.validateTags(ctx, &vb, *in.TagIDs)
		if err != nil {
			return nil, err
		}
	}

	var image *Upload
	if !in.RemoveFeatureImage {
		image, err = s.validateImage(&vb, in.FeatureImage)
		if err != nil {
			return nil, err
		}
	}
	if err := vb.Err(); err != nil {
		return nil, err
	}

	if title, ok := fields["title"].(string); ok {
		slug, err := s.uniqueSlug(ctx, title, post.ID)
		if err != nil {
			return nil, err
		}
		fields["slug"] = slug
	}

	var newPath string
	replacesImage := false
	switch {
	case in.RemoveFeatureImage:
		fields["feature_image"] = nil
		replacesImage = true
	case image != nil:
		newPath, err = s.storage.Put(ctx, fmt.Sprintf("%s/%d", postImageDir, post.UserID), image)
		if err != nil {
			return nil, err
		}
		fields["feature_image"] = newPath
		replacesImage = true
	}
	fields["updated_at"] = time.Now()

	if err := s.posts.Update(ctx, post.ID, fields, tagIDs, in.TagIDs != nil); err != nil {
		discardAsset(ctx, s.storage, newPath)
		return nil, translatePostError(err)
	}
	if replacesImage && post.FeatureImage != nil {
		discardAsset(ctx, s.storage, *post.FeatureImage)
	}

	return s.GetByID(ctx, post.ID)
}

// Delete removes the post and its relations, then its feature image. A failure to remove
// the image is logged and does not undo the deletion.
func (s *PostService) Delete(ctx context.Context, session Session, postID uint) error {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return notFoundOr(err, "Post")
	}
	if post.UserID != session.UserID {
		return models.NewForbiddenError("You cannot delete this post")
	}

	if err := s.posts.Delete(ctx, post.ID); err != nil {
		return notFoundOr(err, "Post")
	}
	if post.FeatureImage != nil {
		discardAsset(ctx, s.storage, *post.FeatureImage)
	}
	return nil
}

// uniqueSlug derives the slug of title, appending -2, -3, ... until no other post uses it.
func (s *PostService) uniqueSlug(ctx context.Context, title string, excludeID uint) (string, error) {
	base := utils.Slugify(title)
	if base == "" {
		base = "post"
	}
	if len(base) > MaxTitleLength-10 {
		base = strings.TrimRight(base[:MaxTitleLength-10], "-")
	}

	candidate := base
	for i := 2; ; i++ {
		taken, err := s.posts.SlugTaken(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

func (s *PostService) validateTags(ctx context.Context, vb *models.ValidationBuilder, ids []uint) ([]uint, error) {
	unique := make([]uint, 0, len(ids))
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	if len(unique) > MaxPostTags {
		vb.Add("tags", fmt.Sprintf("The tags field must not have more than %d items.", MaxPostTags))
		return nil, nil
	}
	if len(unique) == 0 {
		return unique, nil
	}

	found, err := s.tags.CountExisting(ctx, unique)
	if err != nil {
		return nil, err
	}
	if found != int64(len(unique)) {
		vb.Add("tags", "The selected tags are invalid.")
	}
	return unique, nil
}

func (s *PostService) validateImage(vb *models.ValidationBuilder, up *Upload) (*Upload, error) {
	if up == nil {
		return nil, nil
	}
	checked, err := ValidateImage("feature_image", up, s.maxImageBytes)
	if err != nil {
		return nil, mergeFieldErrors(vb, err)
	}
	return checked, nil
}

func validateTitle(vb *models.ValidationBuilder, title string) {
	switch {
	case title == "":
		vb.Add("title", "The title field is required.")
	case utf8.RuneCountInString(title) > MaxTitleLength:
		vb.Add("title", fmt.Sprintf("The title field must not be greater than %d characters.", MaxTitleLength))
	}
}

func validateShortDescription(vb *models.ValidationBuilder, v *string) {
	if v != nil && utf8.RuneCountInString(*v) > MaxShortDescriptionLength {
		vb.Add("short_description",
			fmt.Sprintf("The short description field must not be greater than %d characters.", MaxShortDescriptionLength))
	}
}

// mergeFieldErrors copies the fields of a validation error into vb. Any other error is
// returned unchanged.
func mergeFieldErrors(vb *models.ValidationBuilder, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Code != models.CodeValidation {
		return err
	}
	for field, msg := range appErr.Fields {
		vb.Add(field, msg)
	}
	return nil
}

func translatePostError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrUnknownTag):
		return models.NewFieldError("tags", "The selected tags are invalid.")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return models.NewConflictError("A post with the same slug was created at the same time, please retry.")
	default:
		return notFoundOr(err, "Post")
	}
}

// notFoundOr maps gorm.ErrRecordNotFound to a not-found AppError for resource.
func notFoundOr(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource)
	}
	return err
}
