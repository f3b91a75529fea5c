package model

import "time"

// Sample represents one audio sample in the library.
type Sample struct {
	ID          int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID      int64      `json:"userId" gorm:"index"`
	Name        string     `json:"name"`
	FilePath    string     `json:"-" gorm:"size:767"`
	Format      string     `json:"format"` // may be empty; derive from the file extension then
	SampleRate  int        `json:"sampleRate"`
	Channels    int        `json:"channels"`
	SizeBytes   int64      `json:"sizeBytes"`
	Favorite    bool       `json:"favorite"`
	ContentHash string     `json:"-" gorm:"size:64;index"`
	Fingerprint string     `json:"-" gorm:"size:128;index"`
	CreatedAt   *time.Time `json:"createdAt"` // nullable; imports may lack dates
	UpdatedAt   time.Time  `json:"updatedAt"`

	// Curation counters, filled by the repository from the join tables.
	TagsCount   int `json:"tagsCount" gorm:"-"`
	FolderCount int `json:"folderCount" gorm:"-"`
}

// SampleTag assigns a tag to a sample.
type SampleTag struct {
	ID       int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	SampleID int64  `json:"sampleId" gorm:"index"`
	Tag      string `json:"tag" gorm:"size:100"`
}

// SampleFolder places a sample into a virtual folder.
type SampleFolder struct {
	ID         int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	SampleID   int64  `json:"sampleId" gorm:"index"`
	FolderPath string `json:"folderPath" gorm:"size:767"`
}
