package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"inkpost-api/models"
	"inkpost-api/repositories"
)

const (
	// MaxTagImageBytes bounds tag image uploads.
	MaxTagImageBytes = 2 << 20
	MaxTagNameLength = 255
	tagImageDir      = "tag_images"
)

type CreateTagInput struct {
	TagName          string
	ShortDescription *string
	Image            *Upload
}

type UpdateTagInput struct {
	TagName          *string
	ShortDescription *string
	Image            *Upload
	RemoveImage      bool
}

type TagService struct {
	tags    *repositories.TagRepository
	storage Storage
}

func NewTagService(tags *repositories.TagRepository, storage Storage) *TagService {
	return &TagService{tags: tags, storage: storage}
}

func (s *TagService) decorate(tag *models.Tag) {
	if tag.Image != nil && *tag.Image != "" {
		tag.ImageURL = s.storage.URL(*tag.Image)
	}
	featureImageURLs(s.storage, tag.Posts)
}

func (s *TagService) List(ctx context.Context) ([]models.Tag, error) {
	tags, err := s.tags.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tags {
		s.decorate(&tags[i])
	}
	return tags, nil
}

func (s *TagService) Get(ctx context.Context, id uint) (*models.Tag, error) {
	tag, err := s.tags.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Tag")
	}
	s.decorate(tag)
	return tag, nil
}

func (s *TagService) Create(ctx context.Context, session Session, in CreateTagInput) (*models.Tag, error) {
	var vb models.ValidationBuilder
	name := strings.TrimSpace(in.TagName)
	validateTagName(&vb, name)
	shortDescription := normalizeOptional(in.ShortDescription)
	validateShortDescription(&vb, shortDescription)

	image, err := s.validateImage(&vb, in.Image)
	if err != nil {
		return nil, err
	}
	if err := vb.Err(); err != nil {
		return nil, err
	}

	tag := &models.Tag{UserID: session.UserID, TagName: name, ShortDescription: shortDescription}
	if image != nil {
		path, err := s.storage.Put(ctx, fmt.Sprintf("%s/%d", tagImageDir, session.UserID), image)
		if err != nil {
			return nil, err
		}
		tag.Image = &path
	}

	if err := s.tags.Create(ctx, tag); err != nil {
		if tag.Image != nil {
			discardAsset(ctx, s.storage, *tag.Image)
		}
		return nil, err
	}
	return s.Get(ctx, tag.ID)
}

func (s *TagService) Update(ctx context.Context, session Session, id uint, in UpdateTagInput) (*models.Tag, error) {
	tag, err := s.tags.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Tag")
	}
	if tag.UserID != session.UserID {
		return nil, models.NewForbiddenError("You cannot update this tag")
	}

	var vb models.ValidationBuilder
	fields := map[string]interface{}{}
	if in.TagName != nil {
		name := strings.TrimSpace(*in.TagName)
		validateTagName(&vb, name)
		fields["tag_name"] = name
	}
	if in.ShortDescription != nil {
		shortDescription := normalizeOptional(in.ShortDescription)
		validateShortDescription(&vb, shortDescription)
		fields["short_description"] = shortDescription
	}

	var image *Upload
	if !in.RemoveImage {
		image, err = s.validateImage(&vb, in.Image)
		if err != nil {
			return nil, err
		}
	}
	if err := vb.Err(); err != nil {
		return nil, err
	}

	var newPath string
	replacesImage := false
	switch {
	case in.RemoveImage:
		fields["image"] = nil
		replacesImage = true
	case image != nil:
		newPath, err = s.storage.Put(ctx, fmt.Sprintf("%s/%d", tagImageDir, tag.UserID), image)
		if err != nil {
			return nil, err
		}
		fields["image"] = newPath
		replacesImage = true
	}
	fields["updated_at"] = time.Now()

	if err := s.tags.Update(ctx, tag.ID, fields); err != nil {
		discardAsset(ctx, s.storage, newPath)
		return nil, err
	}
	if replacesImage && tag.Image != nil {
		discardAsset(ctx, s.storage, *tag.Image)
	}
	return s.Get(ctx, tag.ID)
}

// Delete removes the tag and its post associations, then its image. Tagged posts survive.
func (s *TagService) Delete(ctx context.Context, session Session, id uint) error {
	tag, err := s.tags.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "Tag")
	}
	if tag.UserID != session.UserID {
		return models.NewForbiddenError("You cannot delete this tag")
	}

	if err := s.tags.Delete(ctx, tag.ID); err != nil {
		return notFoundOr(err, "Tag")
	}
	if tag.Image != nil {
		discardAsset(ctx, s.storage, *tag.Image)
	}
	return nil
}

func (s *TagService) validateImage(vb *models.ValidationBuilder, up *Upload) (*Upload, error) {
	if up == nil {
		return nil, nil
	}
	checked, err := ValidateImage("image", up, MaxTagImageBytes)
	if err != nil {
		return nil, mergeFieldErrors(vb, err)
	}
	return checked, nil
}

func validateTagName(vb *models.ValidationBuilder, name string) {
	switch {
	case name == "":
		vb.Add("tag_name", "The tag name field is required.")
	case utf8.RuneCountInString(name) > MaxTagNameLength:
		vb.Add("tag_name", fmt.Sprintf("The tag name field must not be greater than %d characters.", MaxTagNameLength))
	}
}
