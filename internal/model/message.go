package model

// Message 收件匣中的一則訊息
type Message struct {
	ID     string `json:"id"`
	Author string `json:"author"`
	Body   string `json:"body"`
}

// Notification 寄給使用者的一封訊息
type Notification struct {
	ID      string `json:"id"`
	User    string `json:"user"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
