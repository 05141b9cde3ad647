package database

import (
	"errors"
	"fmt"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"inkpost-api/models"
	"inkpost-api/utils"
)

// SeedAdmin creates the administrator account unless a user with that email already exists.
func SeedAdmin(db *gorm.DB, email, password string) (*models.User, error) {
	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		utils.Logger.Info("admin user already present, skipping", "email", email)
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}

	username := "admin"
	admin := models.User{
		Name:     "Admin",
		Username: &username,
		Email:    email,
		Password: string(hashed),
	}
	if err := db.Create(&admin).Error; err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}
	return &admin, nil
}

// SeedDemo populates the database with fake users, tags and posts for development.
// Every demo user has the password "password".
func SeedDemo(db *gorm.DB, users int, faker *gofakeit.Faker) error {
	var userCount int64
	db.Model(&models.User{}).Count(&userCount)
	if userCount > 1 {
		utils.Logger.Info("database already has data, skipping demo seed", "users", userCount)
		return nil
	}
	if faker == nil {
		faker = gofakeit.New(0)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var tagIDs []uint
		for i := 0; i < users; i++ {
			user := models.User{
				Name:     faker.Name(),
				Email:    fmt.Sprintf("%d.%s", i, faker.Email()),
				Password: string(hashed),
			}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("could not create demo user: %w", err)
			}

			desc := faker.Sentence(8)
			tag := models.Tag{UserID: user.ID, TagName: faker.HipsterWord(), ShortDescription: &desc}
			if err := tx.Create(&tag).Error; err != nil {
				return fmt.Errorf("could not create demo tag: %w", err)
			}
			tagIDs = append(tagIDs, tag.ID)

			for j := 0; j < 3; j++ {
				title := faker.Sentence(5)
				short := faker.Sentence(12)
				post := models.Post{
					UserID:           user.ID,
					Title:            title,
					Slug:             fmt.Sprintf("%s-%d-%d", utils.Slugify(title), i, j),
					ShortDescription: &short,
					Content:          "<p>" + faker.Paragraph(3, 4, 12, "</p><p>") + "</p>",
				}
				if err := tx.Create(&post).Error; err != nil {
					return fmt.Errorf("could not create demo post: %w", err)
				}
				link := models.PostTag{PostID: post.ID, TagID: tagIDs[faker.Number(0, len(tagIDs)-1)]}
				if err := tx.Create(&link).Error; err != nil {
					return fmt.Errorf("could not tag demo post: %w", err)
				}
			}
		}
		utils.Logger.Info("database seeded with demo data", "users", users)
		return nil
	})
}
