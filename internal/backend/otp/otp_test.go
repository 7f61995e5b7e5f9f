package otp

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, "", 0, 0), mr
}

func TestIssueAndVerify(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	code, err := s.Issue(ctx, "Bear@Example.com", "u1")
	require.NoError(t, err)
	assert.Len(t, code, CodeLength)
	assert.Equal(t, DefaultCodeTTL, mr.TTL("bear:otp:code:bear@example.com"))

	_, err = s.Verify(ctx, "bear@example.com", "000000x")
	assert.ErrorIs(t, err, ErrInvalidCode)

	token, err := s.Verify(ctx, " bear@example.com", code)
	require.NoError(t, err)
	assert.Len(t, token, 64)
	assert.Equal(t, DefaultResetTokenTTL, mr.TTL("bear:otp:reset:"+token))

	// 验证码只能使用一次
	_, err = s.Verify(ctx, "bear@example.com", code)
	assert.ErrorIs(t, err, ErrInvalidCode)

	userID, err := s.ConsumeResetToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)

	_, err = s.ConsumeResetToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestIssue_ReplacesPreviousCode(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	first, err := s.Issue(ctx, "bear@example.com", "u1")
	require.NoError(t, err)
	second, err := s.Issue(ctx, "bear@example.com", "u1")
	require.NoError(t, err)

	if first != second {
		_, err = s.Verify(ctx, "bear@example.com", first)
		assert.ErrorIs(t, err, ErrInvalidCode)
	}
	_, err = s.Verify(ctx, "bear@example.com", second)
	assert.NoError(t, err)
}

func TestVerify_Expired(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	code, err := s.Issue(ctx, "bear@example.com", "u1")
	require.NoError(t, err)
	mr.FastForward(DefaultCodeTTL + time.Second)

	_, err = s.Verify(ctx, "bear@example.com", code)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestConsumeResetToken_Empty(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.ConsumeResetToken(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestGenerateCode_Range(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		assert.NotEqual(t, byte('0'), code[0])
	}
}
