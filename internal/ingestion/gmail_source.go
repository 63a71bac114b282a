package ingestion

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/kadvsk2006/Automated-Resume-Screening/internal/models"
)

const gmailUser = "me"

// ErrNoMessages is returned when a Gmail query matches nothing
var ErrNoMessages = errors.New("no matching messages with attachments")

// AuthCodeFunc shows authURL to the user and returns the code they paste back
type AuthCodeFunc func(authURL string) (string, error)

// GmailSource fetches resume attachments from a Gmail mailbox into memory
type GmailSource struct {
	service *gmail.Service
	log     *zap.Logger
}

// NewGmailSource authorizes against Gmail with the OAuth client in
// credentialsPath. A cached token in tokenPath is reused; otherwise askCode
// runs the consent flow and the new token is cached.
func NewGmailSource(ctx context.Context, credentialsPath, tokenPath string, askCode AuthCodeFunc, log *zap.Logger) (*GmailSource, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	client, err := getClient(ctx, config, tokenPath, askCode)
	if err != nil {
		return nil, err
	}

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail client: %w", err)
	}

	return NewGmailSourceWithService(srv, log), nil
}

// NewGmailSourceWithService wraps an existing Gmail service
func NewGmailSourceWithService(srv *gmail.Service, log *zap.Logger) *GmailSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &GmailSource{service: srv, log: log}
}

// getClient retrieves a token, saves it, then returns the generated client
func getClient(ctx context.Context, config *oauth2.Config, tokenPath string, askCode AuthCodeFunc) (*http.Client, error) {
	tok, err := tokenFromFile(tokenPath)
	if err != nil {
		if askCode == nil {
			return nil, fmt.Errorf("no cached Gmail token at %s: %w", tokenPath, err)
		}
		tok, err = getTokenFromWeb(ctx, config, askCode)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokenPath, tok); err != nil {
			return nil, err
		}
	}
	return config.Client(ctx, tok), nil
}

// getTokenFromWeb requests a token from the web
func getTokenFromWeb(ctx context.Context, config *oauth2.Config, askCode AuthCodeFunc) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)

	authCode, err := askCode(authURL)
	if err != nil {
		return nil, fmt.Errorf("unable to read authorization code: %w", err)
	}

	tok, err := config.Exchange(ctx, strings.TrimSpace(authCode))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tok, nil
}

// tokenFromFile retrieves a token from a local file
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// saveToken saves a token to a file path
func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	return nil
}

// SubjectQuery builds the Gmail search used for application emails
func SubjectQuery(subject string) string {
	return fmt.Sprintf("subject:%q has:attachment", subject)
}

// FetchAttachments returns the resume attachments of every message matching
// query. Files are named "<Sender>_<attachment name>" so attachments called
// resume.pdf from different senders stay distinguishable. Individual
// messages or attachments that cannot be fetched are logged and skipped.
func (gs *GmailSource) FetchAttachments(ctx context.Context, query string) ([]models.PendingFile, error) {
	r, err := gs.service.Users.Messages.List(gmailUser).Q(query).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve messages: %w", err)
	}

	if len(r.Messages) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMessages, query)
	}

	var files []models.PendingFile
	for _, msg := range r.Messages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		message, err := gs.service.Users.Messages.Get(gmailUser, msg.Id).Context(ctx).Do()
		if err != nil {
			gs.log.Warn("unable to retrieve message", zap.String("message_id", msg.Id), zap.Error(err))
			continue
		}
		if message.Payload == nil {
			continue
		}

		senderName := extractSenderName(message)
		for _, part := range attachmentParts(message.Payload) {
			data, err := gs.partData(ctx, msg.Id, part)
			if err != nil {
				gs.log.Warn("unable to retrieve attachment",
					zap.String("message_id", msg.Id),
					zap.String("filename", part.Filename),
					zap.Error(err),
				)
				continue
			}

			files = append(files, models.PendingFile{
				Filename: fmt.Sprintf("%s_%s", senderName, part.Filename),
				Content:  data,
			})
			gs.log.Info("downloaded attachment", zap.String("filename", part.Filename), zap.String("sender", senderName))
		}
	}

	return files, nil
}

func (gs *GmailSource) partData(ctx context.Context, messageID string, part *gmail.MessagePart) ([]byte, error) {
	encoded := part.Body.Data
	if part.Body.AttachmentId != "" {
		attachment, err := gs.service.Users.Messages.Attachments.Get(gmailUser, messageID, part.Body.AttachmentId).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		encoded = attachment.Data
	}
	return decodeBase64URL(encoded)
}

// decodeBase64URL accepts both padded and unpadded base64url
func decodeBase64URL(s string) ([]byte, error) {
	if data, err := base64.URLEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("unable to decode attachment: %w", err)
	}
	return data, nil
}

// attachmentParts walks nested multipart payloads and returns the resume attachments
func attachmentParts(part *gmail.MessagePart) []*gmail.MessagePart {
	var out []*gmail.MessagePart
	if part.Filename != "" && part.Body != nil && IsResumeFile(part.Filename) {
		out = append(out, part)
	}
	for _, child := range part.Parts {
		out = append(out, attachmentParts(child)...)
	}
	return out
}

// extractSenderName extracts the sender's name from email headers
func extractSenderName(message *gmail.Message) string {
	for _, header := range message.Payload.Headers {
		if header.Name == "From" {
			// Parse "Name <email@example.com>" format
			from := header.Value
			if idx := strings.Index(from, "<"); idx > 0 {
				name := strings.TrimSpace(from[:idx])
				name = strings.Trim(name, `"`)
				return strings.ReplaceAll(name, " ", "")
			}
			// If no name, use email prefix
			if idx := strings.Index(from, "@"); idx > 0 {
				return from[:idx]
			}
			return "Unknown"
		}
	}
	return "Unknown"
}
