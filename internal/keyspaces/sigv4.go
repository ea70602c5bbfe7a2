// Package keyspaces authenticates gocql connections to Amazon Keyspaces with
// AWS Signature Version 4 instead of service-specific passwords.
package keyspaces

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gocql/gocql"
)

const (
	algorithm = "AWS4-HMAC-SHA256"
	service   = "cassandra"
	expires   = 900

	amzDateFormat = "2006-01-02T15:04:05.000Z"
	dateFormat    = "20060102"
)

var initialResponse = []byte("SigV4\x00\x00")

// ErrNoNonce is returned when the server challenge carries no nonce.
var ErrNoNonce = errors.New("canopy: keyspaces challenge has no nonce")

// Authenticator implements gocql.Authenticator for Amazon Keyspaces.
type Authenticator struct {
	Region      string
	Credentials aws.CredentialsProvider

	// now is overridden in tests.
	now func() time.Time
}

// NewAuthenticator returns an authenticator signing for region with credentials
// from provider.
func NewAuthenticator(region string, provider aws.CredentialsProvider) *Authenticator {
	return &Authenticator{Region: region, Credentials: provider, now: time.Now}
}

// Challenge answers the server's authenticate request with the SigV4 marker and
// then hands over to a signer for the nonce challenge.
func (a *Authenticator) Challenge(_ []byte) ([]byte, gocql.Authenticator, error) {
	return initialResponse, &signer{auth: a}, nil
}

func (a *Authenticator) Success(_ []byte) error { return nil }

type signer struct {
	auth *Authenticator
}

func (s *signer) Challenge(req []byte) ([]byte, gocql.Authenticator, error) {
	nonce, err := extractNonce(req)
	if err != nil {
		return nil, nil, err
	}
	creds, err := s.auth.Credentials.Retrieve(context.Background())
	if err != nil {
		return nil, nil, fmt.Errorf("retrieve credentials: %w", err)
	}
	now := time.Now
	if s.auth.now != nil {
		now = s.auth.now
	}
	return buildResponse(creds, s.auth.Region, nonce, now().UTC()), nil, nil
}

func (s *signer) Success(_ []byte) error { return nil }

// extractNonce reads the value of "nonce=" up to the next comma.
func extractNonce(challenge []byte) (string, error) {
	const key = "nonce="
	i := bytes.Index(challenge, []byte(key))
	if i < 0 {
		return "", ErrNoNonce
	}
	rest := challenge[i+len(key):]
	if j := bytes.IndexByte(rest, ','); j >= 0 {
		rest = rest[:j]
	}
	if len(rest) == 0 {
		return "", ErrNoNonce
	}
	return string(rest), nil
}

func buildResponse(creds aws.Credentials, region, nonce string, at time.Time) []byte {
	signature := sign(creds, region, nonce, at)
	resp := fmt.Sprintf("signature=%s,access_key=%s,amzdate=%s", signature, creds.AccessKeyID, at.Format(amzDateFormat))
	if creds.SessionToken != "" {
		resp += ",session_token=" + creds.SessionToken
	}
	return []byte(resp)
}

func scope(region string, at time.Time) string {
	return strings.Join([]string{at.Format(dateFormat), region, service, "aws4_request"}, "/")
}

func canonicalRequest(accessKey, region, nonce string, at time.Time) string {
	query := strings.Join([]string{
		"X-Amz-Algorithm=" + algorithm,
		"X-Amz-Credential=" + url.QueryEscape(accessKey+"/"+scope(region, at)),
		"X-Amz-Date=" + url.QueryEscape(at.Format(amzDateFormat)),
		fmt.Sprintf("X-Amz-Expires=%d", expires),
	}, "&")
	return strings.Join([]string{
		"PUT",
		"/authenticate",
		query,
		"host:" + service,
		"",
		"host",
		hashHex(nonce),
	}, "\n")
}

func sign(creds aws.Credentials, region, nonce string, at time.Time) string {
	stringToSign := strings.Join([]string{
		algorithm,
		at.Format(amzDateFormat),
		scope(region, at),
		hashHex(canonicalRequest(creds.AccessKeyID, region, nonce, at)),
	}, "\n")

	key := hmacSHA256([]byte("AWS4"+creds.SecretAccessKey), at.Format(dateFormat))
	key = hmacSHA256(key, region)
	key = hmacSHA256(key, service)
	key = hmacSHA256(key, "aws4_request")
	return hex.EncodeToString(hmacSHA256(key, stringToSign))
}

func hashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}
