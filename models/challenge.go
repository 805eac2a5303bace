package models

import (
	"time"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// ChallengeCategories are the categories the backend accepts.
var ChallengeCategories = []string{
	"Programming", "Community", "Blockchain", "Education", "Fitness", "Creative", "Lifestyle",
}

func ValidCategory(c string) bool {
	for _, known := range ChallengeCategories {
		if c == known {
			return true
		}
	}
	return false
}

type ChallengeStatus string

const (
	ChallengeOpen   ChallengeStatus = "open"
	ChallengeClosed ChallengeStatus = "closed"
)

// Challenge is a catalog entry. Read-only from the client's point of view.
type Challenge struct {
	ID           string          `gorm:"primaryKey;size:64" json:"id"`
	Slug         string          `gorm:"index;size:120" json:"slug"`
	Title        string          `gorm:"not null" json:"title"`
	Description  string          `gorm:"type:text" json:"description"`
	Category     string          `gorm:"index" json:"category"`
	Difficulty   Difficulty      `gorm:"index" json:"difficulty"`
	Reward       Reward          `gorm:"embedded;embeddedPrefix:reward_" json:"reward"`
	Deadline     *time.Time      `json:"deadline,omitempty"`
	Participants int             `gorm:"default:0" json:"participants"`
	Status       ChallengeStatus `gorm:"index;default:'open'" json:"status"`
	Image        string          `json:"image,omitempty"`
	Requirements []string        `gorm:"serializer:json" json:"requirements,omitempty"`
	Tags         []string        `gorm:"serializer:json" json:"tags,omitempty"`
	CreatedBy    string          `gorm:"index" json:"created_by,omitempty"`
	CreatedAt    time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// Expired reports whether the deadline has passed at now.
func (c Challenge) Expired(now time.Time) bool {
	return c.Deadline != nil && now.After(*c.Deadline)
}

func xion(n int64) Reward { return Reward{Amount: n, Unit: DefaultRewardUnit} }

// SeedChallenges returns the starter catalog. Each call returns fresh copies.
func SeedChallenges() []Challenge {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seed := []Challenge{
		{ID: "1", Slug: "complete-a-5k-run", Title: "Complete a 5K Run",
			Description: "Run 5 kilometers and submit proof of completion. Track your route using any fitness app and share your achievement.",
			Category:    "Fitness", Difficulty: DifficultyEasy, Reward: xion(50), Participants: 127, Image: "🏃",
			Requirements: []string{"Use a fitness tracking app", "Complete 5 kilometers", "Submit screenshot of route", "Include timestamp and distance"},
			Tags:         []string{"fitness", "running", "health"}},
		{ID: "2", Slug: "learn-react-native", Title: "Learn React Native",
			Description: "Complete a comprehensive React Native course and build a functional mobile app. Submit your final project and code repository.",
			Category:    "Programming", Difficulty: DifficultyHard, Reward: xion(100), Participants: 89, Image: "💻",
			Requirements: []string{"Complete React Native course", "Build a functional app", "Submit GitHub repository", "Include README documentation"},
			Tags:         []string{"programming", "react-native", "mobile"}},
		{ID: "3", Slug: "volunteer-for-10-hours", Title: "Volunteer for 10 Hours",
			Description: "Volunteer at a local charity or community organization. Document your hours and activities with photos and testimonials.",
			Category:    "Community", Difficulty: DifficultyMedium, Reward: xion(75), Participants: 45, Image: "🤝",
			Requirements: []string{"Find local volunteer opportunity", "Complete 10 hours of service", "Document activities with photos", "Get supervisor signature"},
			Tags:         []string{"community", "volunteer", "charity"}},
		{ID: "4", Slug: "build-a-smart-contract", Title: "Build a Smart Contract",
			Description: "Create and deploy a simple smart contract on XION blockchain. Include basic functionality like token transfer or voting system.",
			Category:    "Blockchain", Difficulty: DifficultyHard, Reward: xion(200), Participants: 23, Image: "⛓️",
			Requirements: []string{"Learn Solidity basics", "Design smart contract", "Deploy to XION testnet", "Submit contract address and code"},
			Tags:         []string{"blockchain", "smart-contract", "solidity"}},
		{ID: "5", Slug: "read-5-books-in-a-month", Title: "Read 5 Books in a Month",
			Description: "Read 5 books from different genres and submit detailed book reviews or reading logs with your insights.",
			Category:    "Education", Difficulty: DifficultyMedium, Reward: xion(80), Participants: 67, Image: "📚",
			Requirements: []string{"Read 5 different books", "Write detailed reviews", "Include reading time logs", "Share key insights learned"},
			Tags:         []string{"education", "reading", "books"}},
		{ID: "6", Slug: "create-digital-art", Title: "Create Digital Art",
			Description: "Create an original digital artwork using any software. Submit the final piece and process screenshots showing your creative journey.",
			Category:    "Creative", Difficulty: DifficultyEasy, Reward: xion(60), Participants: 156, Image: "🎨",
			Requirements: []string{"Use digital art software", "Create original artwork", "Document creation process", "Submit final piece and screenshots"},
			Tags:         []string{"creative", "art", "digital"}},
		{ID: "7", Slug: "learn-a-new-language", Title: "Learn a New Language",
			Description: "Start learning a new language and achieve basic conversational skills. Submit progress logs and practice recordings.",
			Category:    "Education", Difficulty: DifficultyMedium, Reward: xion(90), Participants: 34, Image: "🗣️",
			Requirements: []string{"Choose a new language", "Complete beginner course", "Practice with native speakers", "Submit progress recordings"},
			Tags:         []string{"education", "language", "communication"}},
		{ID: "8", Slug: "build-a-garden", Title: "Build a Garden",
			Description: "Start a small garden and grow your own vegetables or herbs. Document the growth process from seed to harvest.",
			Category:    "Lifestyle", Difficulty: DifficultyEasy, Reward: xion(40), Participants: 78, Image: "🌱",
			Requirements: []string{"Choose plants to grow", "Prepare garden space", "Document weekly growth", "Share harvest photos"},
			Tags:         []string{"lifestyle", "gardening", "sustainability"}},
	}
	for i := range seed {
		seed[i].Status = ChallengeOpen
		seed[i].CreatedAt = created
		seed[i].UpdatedAt = created
	}
	return seed
}
