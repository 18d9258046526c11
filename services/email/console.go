package emailsvc

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/trezcool/alama/core"
)

// consoleService writes emails to stdout; used in DEV and TEST modes.
type consoleService struct {
	std        *log.Logger
	subjPrefix string
}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService(conf *core.Config) *consoleService {
	return &consoleService{
		std:        log.New(os.Stdout, "MAIL : ", log.LstdFlags),
		subjPrefix: "[" + conf.AppName + "] ",
	}
}

func (svc consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if err := msg.Render(); err != nil {
			svc.std.Printf("rendering email: %v", err)
			continue
		}
		if !msg.HasRecipients() || !msg.HasContent() {
			continue
		}

		tos := make([]string, 0, len(msg.To))
		for _, to := range msg.To {
			tos = append(tos, to.String())
		}
		svc.std.Println(strings.Repeat("-", 70))
		svc.std.Printf("To: %s", strings.Join(tos, ", "))
		svc.std.Printf("Subject: %s", svc.subjPrefix+msg.Subject)
		fmt.Println(msg.TextContent)
		svc.std.Println(strings.Repeat("-", 70))
	}
}
