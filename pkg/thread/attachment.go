package thread

// AttachmentState is the upload lifecycle of a file reference, independent of
// the message lifecycle
type AttachmentState string

const (
	AttachmentPending  AttachmentState = "pending"
	AttachmentSuccess  AttachmentState = "success"
	AttachmentError    AttachmentState = "error"
	AttachmentDeleting AttachmentState = "deleting"
)

// Attachment is a file reference attached to a message or awaiting upload
type Attachment struct {
	ID          string
	Name        string
	ContentType string
	State       AttachmentState
}

// Deleted reports whether the attachment should render as a deleted
// placeholder
func (a Attachment) Deleted() bool {
	return a.State == AttachmentDeleting || a.ID == ""
}
