package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"inkpost-api/config"
	"inkpost-api/database"
	"inkpost-api/models"
	"inkpost-api/repositories"
)

type recordingMailer struct {
	mu      sync.Mutex
	welcome []string
	changed []string
	err     error
}

func (m *recordingMailer) SendWelcome(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcome = append(m.welcome, user.Email)
	return m.err
}

func (m *recordingMailer) SendPasswordChanged(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changed = append(m.changed, user.Email)
	return m.err
}

// failingStorage wraps a Storage and fails every Delete.
type failingStorage struct {
	Storage
}

func (failingStorage) Delete(ctx context.Context, path string) error {
	return errors.New("storage offline")
}

type testEnv struct {
	db         *gorm.DB
	storage    *LocalStorage
	storageDir string
	mailer     *recordingMailer

	auth       *AuthService
	posts      *PostService
	engagement *EngagementService
	comments   *CommentService
	tags       *TagService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Initialize("sqlite", ":memory:", "silent")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	dir := t.TempDir()
	storage, err := NewLocalStorage(dir, "http://localhost:8080/storage")
	require.NoError(t, err)

	cfg := &config.Config{JWTSecret: "test-secret", TokenTTL: time.Hour}
	mailer := &recordingMailer{}

	users := repositories.NewUserRepository(db)
	tokens := repositories.NewTokenRepository(db)
	postRepo := repositories.NewPostRepository(db)
	tagRepo := repositories.NewTagRepository(db)

	auth := NewAuthService(users, tokens, postRepo, storage, mailer, cfg)
	auth.SetHashCost(bcrypt.MinCost)

	return &testEnv{
		db:         db,
		storage:    storage,
		storageDir: storage.Root(),
		mailer:     mailer,
		auth:       auth,
		posts:      NewPostService(postRepo, tagRepo, storage, 5<<20),
		engagement: NewEngagementService(postRepo, repositories.NewEngagementRepository(db)),
		comments:   NewCommentService(repositories.NewCommentRepository(db), postRepo),
		tags:       NewTagService(tagRepo, storage),
	}
}

func (e *testEnv) register(t *testing.T, name string) Session {
	t.Helper()
	user, err := e.auth.Register(context.Background(), RegisterInput{
		Name:                 name,
		Email:                name + "@example.com",
		Password:             "secret-" + name,
		PasswordConfirmation: "secret-" + name,
	})
	require.NoError(t, err)
	return Session{UserID: user.ID}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func pngUpload(t *testing.T) *Upload {
	data := pngBytes(t)
	return &Upload{Filename: "image.png", Size: int64(len(data)), Content: bytes.NewReader(data)}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, models.ErrorCode(err), "unexpected error: %v", err)
}

func fileExists(dir, path string) bool {
	_, err := os.Stat(filepath.Join(dir, filepath.FromSlash(path)))
	return err == nil
}

func TestRegisterHashesPasswordAndLoginSucceeds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Register(ctx, RegisterInput{
		Name:                 "Ada Lovelace",
		Email:                "ada@example.com",
		Password:             "analytical",
		PasswordConfirmation: "analytical",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "analytical", user.Password)
	assert.Equal(t, []string{"ada@example.com"}, env.mailer.welcome)

	require.NotNil(t, user.Avatar)
	ref := user.AvatarRef()
	require.NotNil(t, ref)
	assert.Equal(t, models.AvatarInline, ref.Kind)
	assert.Contains(t, ref.Value, "data:image/png;base64,")

	loggedIn, token, err := env.auth.Login(ctx, "ada@example.com", "analytical")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotEmpty(t, token)

	session, err := env.auth.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "taken")

	_, err := env.auth.Register(ctx, RegisterInput{
		Name:                 "Someone",
		Email:                "taken@example.com",
		Password:             "one",
		PasswordConfirmation: "two",
	})
	assertCode(t, err, models.CodeValidation)

	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Fields, "email")
	assert.Contains(t, appErr.Fields, "password")
}

func TestNameIsValidatedAfterTrimming(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, RegisterInput{
		Name: "    ", Email: "blank@example.com", Password: "pw12", PasswordConfirmation: "pw12",
	})
	assertCode(t, err, models.CodeValidation)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Fields, "name")

	_, err = env.auth.Register(ctx, RegisterInput{
		Name: "  ab  ", Email: "short@example.com", Password: "pw12", PasswordConfirmation: "pw12",
	})
	assertCode(t, err, models.CodeValidation)

	user, err := env.auth.Register(ctx, RegisterInput{
		Name: "  Dana  ", Email: "dana@example.com", Password: "pw12", PasswordConfirmation: "pw12",
	})
	require.NoError(t, err)
	assert.Equal(t, "Dana", user.Name)

	session := Session{UserID: user.ID}
	_, err = env.auth.UpdateProfile(ctx, session, UpdateProfileInput{Name: strPtr("    ")})
	assertCode(t, err, models.CodeValidation)
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Fields, "name")

	current, err := env.auth.Profile(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, "Dana", current.User.Name)
}

func TestRegisterWithAvatarUpload(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.auth.Register(context.Background(), RegisterInput{
		Name:                 "Grace",
		Email:                "grace@example.com",
		Password:             "cobol",
		PasswordConfirmation: "cobol",
		Avatar:               pngUpload(t),
	})
	require.NoError(t, err)

	path, ok := user.StoredAvatarPath()
	require.True(t, ok)
	assert.True(t, fileExists(env.storageDir, path))
	assert.Regexp(t, `^avatars/.+\.png$`, path)
}

func TestLoginDoesNotDistinguishFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice")

	_, _, wrongPassword := env.auth.Login(ctx, "alice@example.com", "nope")
	_, _, unknownUser := env.auth.Login(ctx, "nobody@example.com", "nope")

	assertCode(t, wrongPassword, models.CodeUnauthenticated)
	assertCode(t, unknownUser, models.CodeUnauthenticated)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestLogoutRevokesEveryToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice")

	_, first, err := env.auth.Login(ctx, "alice@example.com", "secret-alice")
	require.NoError(t, err)
	_, second, err := env.auth.Login(ctx, "alice@example.com", "secret-alice")
	require.NoError(t, err)

	session, err := env.auth.Authenticate(ctx, first)
	require.NoError(t, err)
	require.NoError(t, env.auth.Logout(ctx, *session))

	for _, token := range []string{first, second} {
		_, err := env.auth.Authenticate(ctx, token)
		assertCode(t, err, models.CodeUnauthenticated)
	}
}

func TestAuthenticateRejectsForeignAndExpiredTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice")

	_, err := env.auth.Authenticate(ctx, "not-a-jwt")
	assertCode(t, err, models.CodeUnauthenticated)

	_, token, err := env.auth.Login(ctx, "alice@example.com", "secret-alice")
	require.NoError(t, err)

	env.auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = env.auth.Authenticate(ctx, token)
	assertCode(t, err, models.CodeUnauthenticated)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := env.register(t, "alice")

	err := env.auth.ChangePassword(ctx, session, ChangePasswordInput{
		CurrentPassword: "wrong", NewPassword: "fresh", NewPasswordConfirmation: "fresh",
	})
	assertCode(t, err, models.CodeValidation)

	err = env.auth.ChangePassword(ctx, session, ChangePasswordInput{
		CurrentPassword: "secret-alice", NewPassword: "fresh", NewPasswordConfirmation: "other",
	})
	assertCode(t, err, models.CodeValidation)

	require.NoError(t, env.auth.ChangePassword(ctx, session, ChangePasswordInput{
		CurrentPassword: "secret-alice", NewPassword: "fresh", NewPasswordConfirmation: "fresh",
	}))
	assert.Equal(t, []string{"alice@example.com"}, env.mailer.changed)

	_, _, err = env.auth.Login(ctx, "alice@example.com", "secret-alice")
	assertCode(t, err, models.CodeUnauthenticated)
	_, _, err = env.auth.Login(ctx, "alice@example.com", "fresh")
	assert.NoError(t, err)
}

func TestMailFailureDoesNotFailRegistration(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.err = errors.New("smtp down")

	_, err := env.auth.Register(context.Background(), RegisterInput{
		Name: "Bobby", Email: "bobby@example.com", Password: "pw12", PasswordConfirmation: "pw12",
	})
	assert.NoError(t, err)
}

func TestUpdateProfileReplacesStoredAvatar(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := env.register(t, "alice")
	env.register(t, "bobby")

	_, err := env.auth.UpdateProfile(ctx, session, UpdateProfileInput{Email: strPtr("bobby@example.com")})
	assertCode(t, err, models.CodeValidation)

	first, err := env.auth.UpdateProfile(ctx, session, UpdateProfileInput{Avatar: pngUpload(t)})
	require.NoError(t, err)
	firstPath, ok := first.StoredAvatarPath()
	require.True(t, ok)
	assert.True(t, fileExists(env.storageDir, firstPath))

	second, err := env.auth.UpdateProfile(ctx, session, UpdateProfileInput{Name: strPtr("Alice Cooper"), Avatar: pngUpload(t)})
	require.NoError(t, err)
	secondPath, ok := second.StoredAvatarPath()
	require.True(t, ok)
	assert.Equal(t, "Alice Cooper", second.Name)
	assert.NotEqual(t, firstPath, secondPath)
	assert.False(t, fileExists(env.storageDir, firstPath))
	assert.True(t, fileExists(env.storageDir, secondPath))
}

func TestProfileIncludesSavedPostsAndAvatar(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := env.register(t, "alice")

	post, err := env.posts.Create(ctx, session, CreatePostInput{Title: "Saved one", Content: "c", FeatureImage: pngUpload(t)})
	require.NoError(t, err)
	_, err = env.engagement.Save(ctx, session, post.ID)
	require.NoError(t, err)

	profile, err := env.auth.Profile(ctx, session)
	require.NoError(t, err)
	require.Len(t, profile.SavedPosts, 1)
	saved := profile.SavedPosts[0]
	assert.Equal(t, post.ID, saved.ID)
	require.NotNil(t, saved.FeatureImage)
	assert.Equal(t, "http://localhost:8080/storage/"+*saved.FeatureImage, saved.FeatureImageURL)
	require.NotNil(t, profile.Avatar)
	assert.Equal(t, models.AvatarInline, profile.Avatar.Kind)
	assert.Equal(t, profile.Avatar.Value, profile.Avatar.URL)
}

func TestResolveAvatarVariants(t *testing.T) {
	env := newTestEnv(t)

	stored := "avatars/a.png"
	view, err := env.auth.ResolveAvatar(&models.User{Name: "x", Avatar: &stored})
	require.NoError(t, err)
	assert.Equal(t, models.AvatarStored, view.Kind)
	assert.Equal(t, "http://localhost:8080/storage/avatars/a.png", view.URL)

	view, err = env.auth.ResolveAvatar(&models.User{Name: "No Avatar"})
	require.NoError(t, err)
	assert.Equal(t, models.AvatarInline, view.Kind)
}

func TestCreatePostComputesSlugAndAttachesTags(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := env.register(t, "alice")

	tag, err := env.tags.Create(ctx, session, CreateTagInput{TagName: "go"})
	require.NoError(t, err)

	post, err := env.posts.Create(ctx, session, CreatePostInput{
		Title:        "Hello World",
		Content:      "<p>hi</p>",
		TagIDs:       []uint{tag.ID, tag.ID},
		FeatureImage: pngUpload(t),
	})
	require.NoError(t, err)
	assert.Equal(t, "hello-world", post.Slug)
	assert.Equal(t, session.UserID, post.User.ID)
	require.Len(t, post.Tags, 1)
	require.NotNil(t, post.FeatureImage)
	assert.Regexp(t, `^post_images/\d+/.+\.png$`, *post.FeatureImage)
	assert.Contains(t, post.FeatureImageURL, "http://localhost:8080/storage/post_images/")

	again, err := env.posts.Create(ctx, session, CreatePostInput{Title: "Hello, World!", Content: "c"})
	require.NoError(t, err)
	assert.Equal(t, "hello-world-2", again.Slug)

	symbols, err := env.posts.Create(ctx, session, CreatePostInput{Title: "???", Content: "c"})
	require.NoError(t, err)
	assert.Equal(t, "post", symbols.Slug)
}

func TestCreatePostValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := env.register(t, "alice")

	_, err := env.posts.Create(ctx, session, CreatePostInput{Title: " ", Content: ""})
	assertCode(t, err, models.CodeValidation)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Fields, "title")
	assert.Contains(t, appErr.Fields, "content")

	_, err = env.posts.Create(ctx, session, CreatePostInput{Title: "T", Content: "c", TagIDs: []uint{1, 2, 3, 4, 5, 6}})
	assertCode(t, err, models.CodeValidation)

	_, err = env.posts.Create(ctx, session, CreatePostInput{Title: "T", Content: "c", TagIDs: []uint{42}})
	assertCode(t, err, models.CodeValidation)

	text := []byte("just some text, not an image")
	_, err = env.posts.Create(ctx, session, CreatePostInput{
		Title: "T", Content: "c",
		FeatureImage: &Upload{Filename: "x.png", Size: int64(len(text)), Content: bytes.NewReader(text)},
	})
	assertCode(t, err, models.CodeValidation)

	posts, err := env.posts.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestDistinctTitlesGiveDistinctSlugs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := env.register(t, "alice")

	seen := map[string]bool{}
	for _, title := range []string{"Go", "Go!", "go", "Rust", "Go 2", "Go-2"} {
		post, err := env.posts.Create(ctx, session, CreatePostInput{Title: title, Content: "c"})
		require.NoError(t, err)
		assert.False(t, seen[post.Slug], "duplicate slug %s", post.Slug)
		seen[post.Slug] = true
	}
}

func TestUpdatePostRecomputesSlugOnlyWhenTitleChanges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := env.register(t, "alice")

	post, err := env.posts.Create(ctx, session, CreatePostInput{Title: "Hello World", Content: "c"})
	require.NoError(t, err)

	updated, err := env.posts.Update(ctx, session, post.ID, UpdatePostInput{Content: strPtr("new body")})
	require.NoError(t, err)
	assert.Equal(t, "hello-world", updated.Slug)
	assert.Equal(t, "new body", updated.Content)

	updated, err = env.posts.Update(ctx, session, post.ID, UpdatePostInput{Title: strPtr("Hello Again")})
	require.NoError(t, err)
	assert.Equal(t, "hello-again", updated.Slug)

	_, err = env.posts.GetBySlug(ctx, "hello-world")
	assertCode(t, err, models.CodeNotFound)
}

func TestUpdatePostReplacesTagsAndImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := env.register(t, "alice")

	a, err := env.tags.Create(ctx, session, CreateTagInput{TagName: "a"})
	require.NoError(t, err)
	b, err := env.tags.Create(ctx, session, CreateTagInput{TagName: "b"})
	require.NoError(t, err)

	post, err := env.posts.Create(ctx, session, CreatePostInput{Title: "P", Content: "c", TagIDs: []uint{a.ID}, FeatureImage: pngUpload(t)})
	require.NoError(t, err)
	oldImage := *post.FeatureImage

	tags := []uint{b.ID}
	updated, err := env.posts.Update(ctx, session, post.ID, UpdatePostInput{TagIDs: &tags, FeatureImage: pngUpload(t)})
	require.NoError(t, err)
	require.Len(t, updated.Tags, 1)
	assert.Equal(t, b.ID, updated.Tags[0].ID)
	require.NotNil(t, updated.FeatureImage)
	assert.NotEqual(t, oldImage, *updated.FeatureImage)
	assert.False(t, fileExists(env.storageDir, oldImage))
	assert.True(t, fileExists(env.storageDir, *updated.FeatureImage))

	newImage := *updated.FeatureImage
	updated, err = env.posts.Update(ctx, session, post.ID, UpdatePostInput{RemoveFeatureImage: true, FeatureImage: pngUpload(t)})
	require.NoError(t, err)
	assert.Nil(t, updated.FeatureImage)
	assert.False(t, fileExists(env.storageDir, newImage))
	require.Len(t, updated.Tags, 1, "tags are untouched when not supplied")
}

func TestUpdatePostWithUnknownTagLeavesPostUnchanged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := env.register(t, "alice")

	post, err := env.posts.Create(ctx, session, CreatePostInput{Title: "Original", Content: "c", FeatureImage: pngUpload(t)})
	require.NoError(t, err)

	bad := []uint{999}
	_, err = env.posts.Update(ctx, session, post.ID, UpdatePostInput{Title: strPtr("Changed"), TagIDs: &bad, FeatureImage: pngUpload(t)})
	assertCode(t, err, models.CodeValidation)

	current, err := env.posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", current.Title)
	assert.Equal(t, *post.FeatureImage, *current.FeatureImage)
	assert.True(t, fileExists(env.storageDir, *current.FeatureImage))

	entries, err := os.ReadDir(filepath.Join(env.storageDir, "post_images"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	files, err := os.ReadDir(filepath.Join(env.storageDir, "post_images", entries[0].Name()))
	require.NoError(t, err)
	assert.Len(t, files, 1, "no dangling upload is left behind")
}

func TestPostOwnershipIsEnforced(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner")
	intruder := env.register(t, "intruder")

	post, err := env.posts.Create(ctx, owner, CreatePostInput{Title: "Mine", Content: "c"})
	require.NoError(t, err)

	_, err = env.posts.Update(ctx, intruder, post.ID, UpdatePostInput{Title: strPtr("Yours")})
	assertCode(t, err, models.CodeForbidden)
	err = env.posts.Delete(ctx, intruder, post.ID)
	assertCode(t, err, models.CodeForbidden)

	current, err := env.posts.GetBySlug(ctx, "mine")
	require.NoError(t, err)
	assert.Equal(t, "Mine", current.Title)

	_, err = env.posts.Update(ctx, owner, 9999, UpdatePostInput{Title: strPtr("x")})
	assertCode(t, err, models.CodeNotFound)
}

func TestDeletePostCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner")
	reader := env.register(t, "reader")

	tag, err := env.tags.Create(ctx, owner, CreateTagInput{TagName: "kept"})
	require.NoError(t, err)
	post, err := env.posts.Create(ctx, owner, CreatePostInput{Title: "Doomed", Content: "c", TagIDs: []uint{tag.ID}, FeatureImage: pngUpload(t)})
	require.NoError(t, err)
	image := *post.FeatureImage

	_, err = env.engagement.Like(ctx, reader, post.ID)
	require.NoError(t, err)
	_, err = env.engagement.Save(ctx, reader, post.ID)
	require.NoError(t, err)
	_, err = env.comments.Create(ctx, reader, post.ID, "nice")
	require.NoError(t, err)

	require.NoError(t, env.posts.Delete(ctx, owner, post.ID))

	for _, model := range []interface{}{&models.PostLike{}, &models.PostSave{}, &models.Comment{}, &models.PostTag{}} {
		var count int64
		env.db.Model(model).Count(&count)
		assert.Equal(t, int64(0), count, "%T rows left behind", model)
	}
	assert.False(t, fileExists(env.storageDir, image))

	_, err = env.posts.GetBySlug(ctx, "doomed")
	assertCode(t, err, models.CodeNotFound)
	_, err = env.tags.Get(ctx, tag.ID)
	assert.NoError(t, err)
}

func TestDeletePostSucceedsWhenAssetRemovalFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner")

	post, err := env.posts.Create(ctx, owner, CreatePostInput{Title: "Sticky", Content: "c", FeatureImage: pngUpload(t)})
	require.NoError(t, err)

	env.posts.storage = failingStorage{env.storage}
	require.NoError(t, env.posts.Delete(ctx, owner, post.ID))

	_, err = env.posts.GetByID(ctx, post.ID)
	assertCode(t, err, models.CodeNotFound)
}

func TestLikeIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner")
	reader := env.register(t, "reader")

	post, err := env.posts.Create(ctx, owner, CreatePostInput{Title: "Likeable", Content: "c"})
	require.NoError(t, err)

	state, err := env.engagement.Like(ctx, reader, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeState{PostID: post.ID, Liked: true, LikesCount: 1}, *state)

	state, err = env.engagement.Like(ctx, reader, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), state.LikesCount)

	state, err = env.engagement.Unlike(ctx, reader, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeState{PostID: post.ID, Liked: false, LikesCount: 0}, *state)

	state, err = env.engagement.Unlike(ctx, reader, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), state.LikesCount)

	_, err = env.engagement.Like(ctx, reader, 9999)
	assertCode(t, err, models.CodeNotFound)
}

func TestLikesCountMatchesRelationUnderInterleaving(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner")

	post, err := env.posts.Create(ctx, owner, CreatePostInput{Title: "Popular", Content: "c"})
	require.NoError(t, err)

	const readers = 8
	sessions := make([]Session, readers)
	for i := range sessions {
		sessions[i] = env.register(t, "reader"+string(rune('a'+i)))
	}

	// Each reader toggles a fixed number of times; odd counts end liked.
	var wg sync.WaitGroup
	errs := make(chan error, readers*10)
	for i, session := range sessions {
		wg.Add(1)
		go func(i int, session Session) {
			defer wg.Done()
			for n := 0; n <= i; n++ {
				var err error
				if n%2 == 0 {
					_, err = env.engagement.Like(ctx, session, post.ID)
				} else {
					_, err = env.engagement.Unlike(ctx, session, post.ID)
				}
				if err != nil {
					errs <- err
				}
			}
		}(i, session)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var relation int64
	env.db.Model(&models.PostLike{}).Where("post_id = ?", post.ID).Count(&relation)
	assert.Equal(t, int64(readers/2), relation)

	fetched, err := env.posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, relation, fetched.LikesCount)
}

func TestSaveToggleAndIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner")

	first, err := env.posts.Create(ctx, owner, CreatePostInput{Title: "One", Content: "c"})
	require.NoError(t, err)
	second, err := env.posts.Create(ctx, owner, CreatePostInput{Title: "Two", Content: "c"})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		state, err := env.engagement.Save(ctx, owner, first.ID)
		require.NoError(t, err)
		assert.True(t, state.Saved)
	}
	_, err = env.engagement.Like(ctx, owner, second.ID)
	require.NoError(t, err)

	saved, err := env.engagement.SavedPostIDs(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []uint{first.ID}, saved)
	liked, err := env.engagement.LikedPostIDs(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, []uint{second.ID}, liked)

	state, err := env.engagement.Unsave(ctx, owner, first.ID)
	require.NoError(t, err)
	assert.False(t, state.Saved)
	saved, err = env.engagement.SavedPostIDs(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestCommentOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.register(t, "author")
	commenter := env.register(t, "commenter")
	other := env.register(t, "other")

	post, err := env.posts.Create(ctx, author, CreatePostInput{Title: "Discuss", Content: "c"})
	require.NoError(t, err)

	comment, err := env.comments.Create(ctx, commenter, post.ID, "  first!  ")
	require.NoError(t, err)
	assert.Equal(t, "first!", comment.Body)
	assert.Equal(t, commenter.UserID, comment.User.ID)

	err = env.comments.Delete(ctx, other, comment.ID)
	assertCode(t, err, models.CodeForbidden)
	_, err = env.comments.Update(ctx, other, comment.ID, "hijacked")
	assertCode(t, err, models.CodeForbidden)

	still, err := env.comments.Get(ctx, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, "first!", still.Body)

	edited, err := env.comments.Update(ctx, commenter, comment.ID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", edited.Body)
	assert.Equal(t, commenter.UserID, edited.UserID)

	require.NoError(t, env.comments.Delete(ctx, commenter, comment.ID))
	_, err = env.comments.Get(ctx, comment.ID)
	assertCode(t, err, models.CodeNotFound)
}

func TestCommentValidationAndListing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.register(t, "author")

	_, err := env.comments.Create(ctx, author, 9999, "orphan")
	assertCode(t, err, models.CodeValidation)

	post, err := env.posts.Create(ctx, author, CreatePostInput{Title: "Discuss", Content: "c"})
	require.NoError(t, err)
	_, err = env.comments.Create(ctx, author, post.ID, "   ")
	assertCode(t, err, models.CodeValidation)

	for _, body := range []string{"one", "two"} {
		_, err := env.comments.Create(ctx, author, post.ID, body)
		require.NoError(t, err)
	}
	list, err := env.comments.List(ctx, &post.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "two", list[0].Body)

	all, err := env.comments.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTagLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner")
	intruder := env.register(t, "intruder")

	_, err := env.tags.Create(ctx, owner, CreateTagInput{TagName: ""})
	assertCode(t, err, models.CodeValidation)

	tag, err := env.tags.Create(ctx, owner, CreateTagInput{TagName: "travel", ShortDescription: strPtr("trips"), Image: pngUpload(t)})
	require.NoError(t, err)
	require.NotNil(t, tag.Image)
	assert.Regexp(t, `^tag_images/\d+/`, *tag.Image)
	assert.NotEmpty(t, tag.ImageURL)
	image := *tag.Image

	post, err := env.posts.Create(ctx, owner, CreatePostInput{Title: "Trip", Content: "c", TagIDs: []uint{tag.ID}})
	require.NoError(t, err)

	_, err = env.tags.Update(ctx, intruder, tag.ID, UpdateTagInput{TagName: strPtr("mine")})
	assertCode(t, err, models.CodeForbidden)
	assertCode(t, env.tags.Delete(ctx, intruder, tag.ID), models.CodeForbidden)

	updated, err := env.tags.Update(ctx, owner, tag.ID, UpdateTagInput{TagName: strPtr("journeys")})
	require.NoError(t, err)
	assert.Equal(t, "journeys", updated.TagName)
	require.Len(t, updated.Posts, 1)

	list, err := env.tags.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "owner", list[0].User.Name)

	require.NoError(t, env.tags.Delete(ctx, owner, tag.ID))
	assert.False(t, fileExists(env.storageDir, image))

	kept, err := env.posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, kept.Tags)
}

func TestGenerateAvatar(t *testing.T) {
	uri, err := GenerateAvatar("Ada Lovelace")
	require.NoError(t, err)
	assert.Contains(t, uri, "data:image/png;base64,")

	again, err := GenerateAvatar("Ada Lovelace")
	require.NoError(t, err)
	assert.Equal(t, uri, again)

	_, err = GenerateAvatar("")
	assert.NoError(t, err)
}

func TestValidateImage(t *testing.T) {
	data := pngBytes(t)
	up, err := ValidateImage("image", &Upload{Size: int64(len(data)), Content: bytes.NewReader(data)}, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, "image/png", up.ContentType)
	assert.Equal(t, ".png", up.Extension)

	var buf bytes.Buffer
	_, err = buf.ReadFrom(up.Content)
	require.NoError(t, err)
	assert.Equal(t, data, buf.Bytes(), "sniffing must not consume the content")

	_, err = ValidateImage("image", &Upload{Size: 10 << 20, Content: bytes.NewReader(data)}, 1<<20)
	assertCode(t, err, models.CodeValidation)

	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`)
	_, err = ValidateImage("image", &Upload{Size: int64(len(svg)), Content: bytes.NewReader(svg)}, 1<<20)
	assertCode(t, err, models.CodeValidation)
}

func TestLocalStorageRejectsRootPaths(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir(), "http://cdn.test/")
	require.NoError(t, err)

	assert.Error(t, storage.Delete(context.Background(), ".."))
	assert.Error(t, storage.Delete(context.Background(), "/"))
	assert.NoError(t, storage.Delete(context.Background(), "avatars/missing.png"))
	assert.Equal(t, "http://cdn.test/avatars/a.png", storage.URL("avatars/a.png"))
}

func strPtr(s string) *string { return &s }
