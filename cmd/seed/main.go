package main

import (
	"log"

	"course-chat-service/internal/config"
	"course-chat-service/internal/database"
	"course-chat-service/internal/models"

	"github.com/joho/godotenv"
)

// Seeds a development course with an instructor, a learner and two
// channels (general discussion plus a threads-only announcement stream).
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	db, err := database.NewPostgresConnection(cfg.Database.URI())
	if err != nil {
		log.Fatal("failed to connect to postgres: ", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("migration failed: ", err)
	}

	course := &models.Course{Name: "Intro to Distributed Systems"}
	if err := db.Create(course).Error; err != nil {
		log.Fatal("failed to seed course: ", err)
	}

	members := []*models.CourseMember{
		{CourseID: course.ID, UserID: "dev-instructor", Role: models.RoleInstructorOwner},
		{CourseID: course.ID, UserID: "dev-learner", Role: models.RoleLearner},
	}
	for _, member := range members {
		if err := db.Create(member).Error; err != nil {
			log.Fatal("failed to seed course member: ", err)
		}
	}

	generalName := "general"
	announceName := "announcements"
	channels := []*models.CourseChannel{
		{
			CourseID:    course.ID,
			Type:        models.ChannelTypeGeneral,
			PostingMode: models.PostingModeMixed,
			Visibility:  models.VisibilityPublic,
			Name:        &generalName,
		},
		{
			CourseID:    course.ID,
			Type:        models.ChannelTypeAnnouncement,
			PostingMode: models.PostingModeThreadsOnly,
			Visibility:  models.VisibilityPublic,
			Name:        &announceName,
		},
	}
	for _, channel := range channels {
		if err := db.Create(channel).Error; err != nil {
			log.Fatal("failed to seed channel: ", err)
		}
	}

	log.Printf("seeded course %s with %d members and %d channels", course.ID, len(members), len(channels))
}
