/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package configjson

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

// IdentityKeyBytes is the amount of randomness in an identity key.
const IdentityKeyBytes = 16

// randomRetryInterval is the pause after a failed read of the random source.
const randomRetryInterval = time.Second

var keyLog = logf.Log.WithName("identity-key")

// KeyGenerator produces new identity keys.
type KeyGenerator interface {
	NewKey() string
}

// RandomKeyGenerator reads identity keys from a cryptographic source. A
// failing source is retried until it succeeds; it never falls back to a
// weaker one.
type RandomKeyGenerator struct {
	reader io.Reader
	clock  clock.Clock
	log    logr.Logger
}

// NewRandomKeyGenerator returns a generator backed by crypto/rand.
func NewRandomKeyGenerator() *RandomKeyGenerator {
	return NewRandomKeyGeneratorWithSource(rand.Reader, clock.RealClock{})
}

// NewRandomKeyGeneratorWithSource returns a generator reading from r.
func NewRandomKeyGeneratorWithSource(r io.Reader, c clock.Clock) *RandomKeyGenerator {
	return &RandomKeyGenerator{reader: r, clock: c, log: keyLog}
}

// NewKey returns IdentityKeyBytes random bytes as lowercase hex.
func (g *RandomKeyGenerator) NewKey() string {
	buf := make([]byte, IdentityKeyBytes)
	warned := false
	for {
		_, err := io.ReadFull(g.reader, buf)
		if err == nil {
			return hex.EncodeToString(buf)
		}
		if !warned {
			g.log.Error(err, "random source unavailable, retrying")
			warned = true
		}
		g.clock.Sleep(randomRetryInterval)
	}
}
