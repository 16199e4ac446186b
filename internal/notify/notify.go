package notify

import (
	"log"
	"os/exec"
)

const appName = "signcap"

type Urgency string

const (
	Low      Urgency = "low"
	Normal   Urgency = "normal"
	Critical Urgency = "critical"
)

type Notifier interface {
	// Alert reports a failure the user has to acknowledge.
	Alert(msg string)
	// Notice reports something transient.
	Notice(msg string)
	Result(title, body string, urgency Urgency)
}

// New returns the notifier for a notifications.type value.
func New(kind string) Notifier {
	switch kind {
	case "desktop":
		return Desktop{}
	case "log":
		return Log{}
	default:
		return Nop{}
	}
}

type Desktop struct{}

func (Desktop) Alert(msg string) {
	send(Critical, "Signcap", msg)
}

func (Desktop) Notice(msg string) {
	send(Low, "Signcap", msg)
}

func (Desktop) Result(title, body string, urgency Urgency) {
	send(urgency, title, body)
}

func send(urgency Urgency, title, body string) {
	args := []string{"-a", appName, "-u", string(urgency), title}
	if body != "" {
		args = append(args, body)
	}
	cmd := exec.Command("notify-send", args...)
	if err := cmd.Run(); err != nil {
		log.Printf("Failed to send notification: %v", err)
	}
}

type Log struct{}

func (Log) Alert(msg string) {
	log.Printf("Signcap Alert: %s", msg)
}

func (Log) Notice(msg string) {
	log.Printf("Signcap Notice: %s", msg)
}

func (Log) Result(title, body string, urgency Urgency) {
	log.Printf("Signcap %s [%s]: %s", title, urgency, body)
}

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) Alert(msg string)                           {}
func (Nop) Notice(msg string)                          {}
func (Nop) Result(title, body string, urgency Urgency) {}
