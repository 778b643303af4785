package emailgen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Drafter generates a reorder email for a supplier. Implementations are
// expected to be unreliable (rate limits, quotas, outages); callers should
// fall back to ManualDraft on any error.
type Drafter interface {
	Draft(ctx context.Context, req *DraftRequest) (string, error)
}

type OpenAIDrafter struct {
	client *openai.Client
	model  string
}

func NewOpenAIDrafter(apiKey string) *OpenAIDrafter {
	client := openai.NewClient(apiKey)
	return &OpenAIDrafter{client: client, model: openai.GPT4oMini}
}

const systemPrompt = "You write short, professional purchase-order emails to suppliers. " +
	"Respond with a single line starting with 'Subject: ' followed by the email body. " +
	"Do not invent prices, quantities, or part numbers that are not provided."

func userPrompt(req *DraftRequest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Draft a reorder email to supplier %v for %d units of %v.", req.SupplierName, req.ReorderQuantity, req.ItemName)
	fmt.Fprintf(&sb, " Current stock is %d units.", req.CurrentQuantity)
	if req.Sku != "" {
		fmt.Fprintf(&sb, " The SKU is %v.", req.Sku)
	}
	if req.UnitPrice != nil {
		fmt.Fprintf(&sb, " The last unit price was %.2f.", *req.UnitPrice)
	}
	if req.CompanyName != "" {
		fmt.Fprintf(&sb, " The order is on behalf of %v.", req.CompanyName)
	}
	if req.SenderName != "" {
		fmt.Fprintf(&sb, " Sign the email as %v.", req.SenderName)
	}

	return sb.String()
}

func (d *OpenAIDrafter) Draft(ctx context.Context, req *DraftRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(req)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("error creating chat completion: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("chat completion returned no content")
	}

	email := strings.TrimSpace(resp.Choices[0].Message.Content)
	if !strings.HasPrefix(email, "Subject: ") {
		email = fmt.Sprintf("Subject: Purchase order: %v\n\n%v", req.ItemName, email)
	}

	return email, nil
}

// This pattern helps in easily mocking the drafter in tests.
type NewDrafterFunc func(provider, apiKey string) (Drafter, error)

var NewDrafter NewDrafterFunc = func(provider, apiKey string) (Drafter, error) {
	switch strings.ToLower(provider) {
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("API key required for OpenAI")
		}
		return NewOpenAIDrafter(apiKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// ManualDraft is the deterministic fallback used when no drafter is configured
// or the provider fails. The result is user editable, so it only needs to be a
// reasonable starting point.
func ManualDraft(req *DraftRequest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Subject: Purchase order: %v", req.ItemName)
	if req.Sku != "" {
		fmt.Fprintf(&sb, " (SKU %v)", req.Sku)
	}
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Hello %v,\n\n", req.SupplierName)
	fmt.Fprintf(&sb, "We would like to order %d units of %v", req.ReorderQuantity, req.ItemName)
	if req.UnitPrice != nil {
		fmt.Fprintf(&sb, " at the last agreed unit price of %.2f", *req.UnitPrice)
	}
	sb.WriteString(".\n")
	fmt.Fprintf(&sb, "Our current stock is %d units.\n\n", req.CurrentQuantity)

	sb.WriteString("Please confirm availability, pricing, and expected delivery date.\n\n")

	sb.WriteString("Best regards,\n")
	if req.SenderName != "" {
		fmt.Fprintf(&sb, "%v\n", req.SenderName)
	}
	if req.CompanyName != "" {
		fmt.Fprintf(&sb, "%v\n", req.CompanyName)
	}

	return sb.String()
}
