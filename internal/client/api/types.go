package api

// User is the account payload returned by the server.
type User struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	DisplayName string   `json:"displayName"`
	Email       string   `json:"email"`
	Headline    string   `json:"headline"`
	Bio         string   `json:"bio"`
	AvatarURL   string   `json:"avatarUrl"`
	Roles       []string `json:"roles"`
	Teams       []string `json:"teams"`
}

// Assignment describes who currently holds a task.
type Assignment struct {
	UserID      string  `json:"userId"`
	Username    string  `json:"username"`
	DisplayName string  `json:"displayName"`
	Status      string  `json:"status"`
	AssignedAt  string  `json:"assignedAt"`
	CompletedAt *string `json:"completedAt"`
}

// Task is the task payload returned by the server. Timestamps are RFC 3339
// strings; parsing happens in the board layer.
type Task struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	DescriptionHTML  string      `json:"descriptionHtml"`
	DescriptionPlain string      `json:"descriptionPlain"`
	Bounty           int64       `json:"bounty"`
	Priority         string      `json:"priority"`
	Status           string      `json:"status"`
	Deadline         *string     `json:"deadline"`
	Tags             []string    `json:"tags"`
	CreatedBy        string      `json:"createdBy"`
	PublishedBy      string      `json:"publishedBy"`
	CreatedAt        string      `json:"createdAt"`
	UpdatedAt        string      `json:"updatedAt"`
	CurrentAssignee  *Assignment `json:"currentAssignee"`
}

// TaskPage is one page of a task listing.
type TaskPage struct {
	Items []Task `json:"items"`
	Total int    `json:"total"`
}

// UserPage is one page of an account listing.
type UserPage struct {
	Items []User `json:"items"`
	Total int    `json:"total"`
}
