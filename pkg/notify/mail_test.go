package notify

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Skotchmaster/teslix_shop/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPMailer_Render(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{From: "noreply@teslix.com"})
	raw := string(m.render(Message{To: "a@b.c", Subject: "Password Reset Request", Body: "hello"}))

	assert.True(t, strings.HasPrefix(raw, "From: noreply@teslix.com\r\n"))
	assert.Contains(t, raw, "To: a@b.c\r\n")
	assert.Contains(t, raw, "Subject: Password Reset Request\r\n")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nhello"))
}

func TestLogMailer_Send(t *testing.T) {
	var buf bytes.Buffer
	m := LogMailer{Logger: logging.NewWithWriter(&buf, "info")}

	require.NoError(t, m.Send(context.Background(), Message{To: "a@b.c", Subject: "s", Body: "open https://shop.example.com/reset_password/secret-link"}))
	assert.Contains(t, buf.String(), `"msg":"mail_not_sent"`)
	assert.Contains(t, buf.String(), `"to":"a@b.c"`)
	assert.NotContains(t, buf.String(), "secret-link", "bodies carry links and tokens")
}
