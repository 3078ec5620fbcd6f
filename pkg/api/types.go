package api

import "time"

// Institution is a school or organization on the platform
type Institution struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Class is a course within an institution
type Class struct {
	ID            string `json:"id"`
	InstitutionID string `json:"institution_id"`
	Name          string `json:"name"`
	Term          string `json:"term,omitempty"`
	Archived      bool   `json:"archived"`
}

// Assistant is a configured tutoring assistant attached to a class
type Assistant struct {
	ID           string `json:"id"`
	ClassID      string `json:"class_id"`
	Name         string `json:"name"`
	Model        string `json:"model,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	Published    bool   `json:"published"`
}

// User is a platform account
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// File is an uploaded file reference
type File struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// Agreement is a terms-of-use document users must accept
type Agreement struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Required bool   `json:"required"`
}

// LTIRegistration ties an institution to an LTI platform issuer
type LTIRegistration struct {
	ID            string `json:"id"`
	InstitutionID string `json:"institution_id"`
	Issuer        string `json:"issuer"`
	ClientID      string `json:"client_id"`
	DeploymentID  string `json:"deployment_id,omitempty"`
}

// Thread is a conversation between users and an assistant
type Thread struct {
	ID          string    `json:"id"`
	ClassID     string    `json:"class_id"`
	AssistantID string    `json:"assistant_id"`
	Public      bool      `json:"public"`
	CreatedAt   time.Time `json:"created_at"`
}

// Participant is a thread member (a user or the assistant)
type Participant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// ContentBlock is one unit of message content
type ContentBlock struct {
	Kind       string `json:"kind"`
	Text       string `json:"text,omitempty"`
	ImageID    string `json:"image_id,omitempty"`
	Language   string `json:"language,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	ToolArgs   string `json:"tool_args,omitempty"`
	ToolOutput string `json:"tool_output,omitempty"`
}

// Message is one entry in a thread's history
type Message struct {
	ID            string         `json:"id"`
	ThreadID      string         `json:"thread_id"`
	Role          string         `json:"role"`
	Blocks        []ContentBlock `json:"content"`
	AttachmentIDs []string       `json:"attachment_ids,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Run is one assistant-generation cycle on a thread
type Run struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Response wrappers. Each embeds Envelope so callers always see the
// normalized $status alongside the data fields.

type InstitutionResponse struct {
	Envelope
	Institution Institution `json:"institution"`
}

type InstitutionsResponse struct {
	Envelope
	Institutions []Institution `json:"institutions"`
}

type ClassResponse struct {
	Envelope
	Class Class `json:"class"`
}

type ClassesResponse struct {
	Envelope
	Classes []Class `json:"classes"`
}

type AssistantResponse struct {
	Envelope
	Assistant Assistant `json:"assistant"`
}

type AssistantsResponse struct {
	Envelope
	Assistants []Assistant `json:"assistants"`
}

type UserResponse struct {
	Envelope
	User User `json:"user"`
}

type UsersResponse struct {
	Envelope
	Users []User `json:"users"`
}

type FileResponse struct {
	Envelope
	File File `json:"file"`
}

type FilesResponse struct {
	Envelope
	Files []File `json:"files"`
}

type AgreementResponse struct {
	Envelope
	Agreement Agreement `json:"agreement"`
}

type AgreementsResponse struct {
	Envelope
	Agreements []Agreement `json:"agreements"`
}

type LTIRegistrationResponse struct {
	Envelope
	Registration LTIRegistration `json:"registration"`
}

type LTIRegistrationsResponse struct {
	Envelope
	Registrations []LTIRegistration `json:"registrations"`
}

type ThreadResponse struct {
	Envelope
	Thread       Thread        `json:"thread"`
	Participants []Participant `json:"participants,omitempty"`
	Run          *Run          `json:"run,omitempty"`
}

type ThreadsResponse struct {
	Envelope
	Threads []Thread `json:"threads"`
}

type MessagesResponse struct {
	Envelope
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"has_more"`
}

type PostMessageResponse struct {
	Envelope
	Message Message `json:"message"`
	Run     *Run    `json:"run,omitempty"`
}

type RunResponse struct {
	Envelope
	Run Run `json:"run"`
}

// DeleteResponse is the envelope-only response of DELETE endpoints
type DeleteResponse struct {
	Envelope
}
