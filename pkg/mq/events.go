package mq

// QuestionClassifiedPayload is emitted once per successfully flushed batch
// item in classify mode.
type QuestionClassifiedPayload struct {
	QuestionID string `json:"question_id"`
	Category   string `json:"category"`
}

// QuestionTaggedPayload is emitted once per question whose tags were all
// written in tag-generation mode.
type QuestionTaggedPayload struct {
	QuestionID string   `json:"question_id"`
	Tags       []string `json:"tags"`
}
