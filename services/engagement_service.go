package services

import (
	"context"

	"inkpost-api/models"
	"inkpost-api/repositories"
)

// EngagementService toggles likes and saves. Every toggle is idempotent: repeating it
// leaves the relation, and the like count, unchanged.
type EngagementService struct {
	posts      *repositories.PostRepository
	engagement *repositories.EngagementRepository
}

func NewEngagementService(posts *repositories.PostRepository, engagement *repositories.EngagementRepository) *EngagementService {
	return &EngagementService{posts: posts, engagement: engagement}
}

func (s *EngagementService) requirePost(ctx context.Context, postID uint) error {
	exists, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return err
	}
	if !exists {
		return models.NewNotFoundError("Post")
	}
	return nil
}

func (s *EngagementService) likeState(ctx context.Context, postID uint, liked bool) (*models.LikeState, error) {
	count, err := s.engagement.CountLikes(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &models.LikeState{PostID: postID, Liked: liked, LikesCount: count}, nil
}

func (s *EngagementService) Like(ctx context.Context, session Session, postID uint) (*models.LikeState, error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}
	if err := s.engagement.Like(ctx, session.UserID, postID); err != nil {
		return nil, err
	}
	return s.likeState(ctx, postID, true)
}

func (s *EngagementService) Unlike(ctx context.Context, session Session, postID uint) (*models.LikeState, error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}
	if err := s.engagement.Unlike(ctx, session.UserID, postID); err != nil {
		return nil, err
	}
	return s.likeState(ctx, postID, false)
}

func (s *EngagementService) Save(ctx context.Context, session Session, postID uint) (*models.SaveState, error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}
	if err := s.engagement.Save(ctx, session.UserID, postID); err != nil {
		return nil, err
	}
	return &models.SaveState{PostID: postID, Saved: true}, nil
}

func (s *EngagementService) Unsave(ctx context.Context, session Session, postID uint) (*models.SaveState, error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}
	if err := s.engagement.Unsave(ctx, session.UserID, postID); err != nil {
		return nil, err
	}
	return &models.SaveState{PostID: postID, Saved: false}, nil
}

func (s *EngagementService) LikedPostIDs(ctx context.Context, session Session) ([]uint, error) {
	return s.engagement.LikedPostIDs(ctx, session.UserID)
}

func (s *EngagementService) SavedPostIDs(ctx context.Context, session Session) ([]uint, error) {
	return s.engagement.SavedPostIDs(ctx, session.UserID)
}
