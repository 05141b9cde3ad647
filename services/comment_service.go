package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"inkpost-api/models"
	"inkpost-api/repositories"
)

const MaxCommentLength = 10000

type CommentService struct {
	comments *repositories.CommentRepository
	posts    *repositories.PostRepository
}

func NewCommentService(comments *repositories.CommentRepository, posts *repositories.PostRepository) *CommentService {
	return &CommentService{comments: comments, posts: posts}
}

// List returns the comments of postID, or every comment when postID is nil. Newest first.
func (s *CommentService) List(ctx context.Context, postID *uint) ([]models.Comment, error) {
	if postID == nil {
		return s.comments.ListAll(ctx)
	}
	return s.comments.ListByPost(ctx, *postID)
}

func (s *CommentService) Get(ctx context.Context, id uint) (*models.Comment, error) {
	comment, err := s.comments.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Comment")
	}
	return comment, nil
}

func (s *CommentService) Create(ctx context.Context, session Session, postID uint, body string) (*models.Comment, error) {
	var vb models.ValidationBuilder
	body = strings.TrimSpace(body)
	validateCommentBody(&vb, body)

	if postID == 0 {
		vb.Add("post_id", "The post id field is required.")
	} else if exists, err := s.posts.Exists(ctx, postID); err != nil {
		return nil, err
	} else if !exists {
		vb.Add("post_id", "The selected post id is invalid.")
	}
	if err := vb.Err(); err != nil {
		return nil, err
	}

	comment := &models.Comment{PostID: postID, UserID: session.UserID, Body: body}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return s.Get(ctx, comment.ID)
}

// Update rewrites the body of a comment owned by the caller.
func (s *CommentService) Update(ctx context.Context, session Session, id uint, body string) (*models.Comment, error) {
	comment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment.UserID != session.UserID {
		return nil, models.NewForbiddenError("Unauthorized to update this comment")
	}

	var vb models.ValidationBuilder
	body = strings.TrimSpace(body)
	validateCommentBody(&vb, body)
	if err := vb.Err(); err != nil {
		return nil, err
	}

	if err := s.comments.UpdateBody(ctx, comment.ID, body); err != nil {
		return nil, err
	}
	return s.Get(ctx, comment.ID)
}

func (s *CommentService) Delete(ctx context.Context, session Session, id uint) error {
	comment, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if comment.UserID != session.UserID {
		return models.NewForbiddenError("Unauthorized to delete this comment")
	}
	return notFoundOr(s.comments.Delete(ctx, comment.ID), "Comment")
}

func validateCommentBody(vb *models.ValidationBuilder, body string) {
	switch {
	case body == "":
		vb.Add("body", "The body field is required.")
	case utf8.RuneCountInString(body) > MaxCommentLength:
		vb.Add("body", fmt.Sprintf("The body field must not be greater than %d characters.", MaxCommentLength))
	}
}
