package kafka

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/xdg-go/scram"
)

// Ensure XDGSCRAMClient implements sarama.SCRAMClient.
var _ sarama.SCRAMClient = (*XDGSCRAMClient)(nil)

var (
	// SHA256 is the hash generator for SCRAM-SHA-256.
	SHA256 scram.HashGeneratorFcn = sha256.New
	// SHA512 is the hash generator for SCRAM-SHA-512.
	SHA512 scram.HashGeneratorFcn = sha512.New
)

// XDGSCRAMClient adapts xdg-go/scram to sarama's SCRAM client interface.
type XDGSCRAMClient struct {
	*scram.Client
	*scram.ClientConversation
	scram.HashGeneratorFcn
}

// Begin starts a new conversation for the given credentials.
func (x *XDGSCRAMClient) Begin(userName, password, authzID string) (err error) {
	x.Client, err = x.HashGeneratorFcn.NewClient(userName, password, authzID)
	if err != nil {
		return err
	}
	x.ClientConversation = x.Client.NewConversation()
	return nil
}

// Step answers one server challenge.
func (x *XDGSCRAMClient) Step(challenge string) (response string, err error) {
	return x.ClientConversation.Step(challenge)
}

// Done reports whether the conversation has completed.
func (x *XDGSCRAMClient) Done() bool {
	return x.ClientConversation.Done()
}

// scramMechanism returns the sarama mechanism and client generator for a
// SCRAM mechanism name.
func scramMechanism(name string) (sarama.SASLMechanism, func() sarama.SCRAMClient, error) {
	switch name {
	case "SCRAM-SHA-256":
		return sarama.SASLTypeSCRAMSHA256, func() sarama.SCRAMClient {
			return &XDGSCRAMClient{HashGeneratorFcn: SHA256}
		}, nil
	case "SCRAM-SHA-512":
		return sarama.SASLTypeSCRAMSHA512, func() sarama.SCRAMClient {
			return &XDGSCRAMClient{HashGeneratorFcn: SHA512}
		}, nil
	default:
		return "", nil, fmt.Errorf("unsupported SCRAM mechanism: %s", name)
	}
}
