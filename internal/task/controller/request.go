package controller

// CreateTaskRequest is the body of POST /tasks.
type CreateTaskRequest struct {
	Title         string   `json:"title" binding:"required,max=255"`
	Description   string   `json:"description" binding:"required"`
	Hints         []string `json:"hints"`
	Categories    []int64  `json:"categories"`
	Answers       []string `json:"answers" binding:"required,min=1,dive,required"`
	Value         int      `json:"value" binding:"gte=0"`
	CaseSensitive bool     `json:"caseSensitive"`
}

// UpdateTaskRequest is the body of PUT /tasks/:id. Answers are appended to
// the existing set; the other lists are replaced.
type UpdateTaskRequest struct {
	Description string   `json:"description" binding:"required"`
	Hints       []string `json:"hints"`
	Categories  []int64  `json:"categories"`
	Answers     []string `json:"answers" binding:"dive,required"`
}
