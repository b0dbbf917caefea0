// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package patterns

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var (
	base58AddrRe = regexp.MustCompile(`\b[13LM][1-9A-HJ-NP-Za-km-z]{25,34}\b`)
	bech32Re     = regexp.MustCompile(`\b(?:bc|tb|ltc)1[02-9ac-hj-np-z]{8,87}\b`)
	ethAddrRe    = regexp.MustCompile(`\b0x[0-9a-fA-F]{40}\b`)

	// version byte -> currency for base58check payloads
	base58Versions = map[byte]string{
		0x00: "BTC",
		0x05: "BTC",
		0x30: "LTC",
		0x32: "LTC",
	}

	bech32Generator = [5]uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}
)

const (
	bech32Const  = 1
	bech32mConst = 0x2bc830a3
)

// FindCryptoAddresses returns Bitcoin, Litecoin and Ethereum addresses whose checksums verify
func FindCryptoAddresses(text string) []string {
	return values(findCrypto(text))
}

func findCrypto(text string) []Match {
	if isBlank(text) {
		return nil
	}
	var out []Match
	out = append(out, scan(text, base58AddrRe, 0, TypeCryptoAddress, func(text string, start, end int) (string, bool) {
		v := text[start:end]
		return v, ValidateBase58Address(v)
	})...)
	out = append(out, scan(text, bech32Re, 0, TypeCryptoAddress, func(text string, start, end int) (string, bool) {
		v := text[start:end]
		return v, ValidateBech32(v)
	})...)
	out = append(out, scan(text, ethAddrRe, 0, TypeCryptoAddress, func(text string, start, end int) (string, bool) {
		v := text[start:end]
		return v, ValidateEthereumAddress(v)
	})...)
	return normalizeMatches(out)
}

// ValidateBase58Address decodes a base58check address and verifies the double SHA-256 checksum
func ValidateBase58Address(addr string) bool {
	raw, ok := decodeBase58(addr)
	if !ok || len(raw) != 25 {
		return false
	}
	if _, known := base58Versions[raw[0]]; !known {
		return false
	}
	first := sha256.Sum256(raw[:21])
	second := sha256.Sum256(first[:])
	return bytes.Equal(second[:4], raw[21:])
}

func decodeBase58(s string) ([]byte, bool) {
	n := new(big.Int)
	radix := big.NewInt(58)
	for i := 0; i < len(s); i++ {
		idx := strings.IndexByte(base58Alphabet, s[i])
		if idx < 0 {
			return nil, false
		}
		n.Mul(n, radix)
		n.Add(n, big.NewInt(int64(idx)))
	}
	decoded := n.Bytes()
	leading := 0
	for leading < len(s) && s[leading] == '1' {
		leading++
	}
	return append(make([]byte, leading), decoded...), true
}

// ValidateBech32 verifies a segwit address checksum (bech32 for v0, bech32m for v1+)
func ValidateBech32(addr string) bool {
	if len(addr) > 90 || strings.ToLower(addr) != addr {
		return false
	}
	sep := strings.LastIndexByte(addr, '1')
	if sep < 1 || sep+7 > len(addr) {
		return false
	}
	hrp, data := addr[:sep], addr[sep+1:]
	data5 := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		idx := strings.IndexByte("qpzry9x8gf2tvdw0s3jn54khce6mua7l", data[i])
		if idx < 0 {
			return false
		}
		data5 = append(data5, byte(idx))
	}
	poly := bech32Polymod(append(hrpExpand(hrp), data5...))
	witnessVersion := data5[0]
	if witnessVersion == 0 {
		return poly == bech32Const
	}
	return poly == bech32mConst
}

func hrpExpand(hrp string) []byte {
	out := make([]byte, 0, 2*len(hrp)+1)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]>>5)
	}
	out = append(out, 0)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]&31)
	}
	return out
}

func bech32Polymod(values []byte) uint32 {
	chk := uint32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 == 1 {
				chk ^= bech32Generator[i]
			}
		}
	}
	return chk
}

// ValidateEthereumAddress accepts single-case hex addresses and verifies EIP-55
// mixed-case checksums against the Keccak-256 hash of the lower-case address.
func ValidateEthereumAddress(addr string) bool {
	if len(addr) != 42 || !strings.HasPrefix(addr, "0x") {
		return false
	}
	body := addr[2:]
	if _, err := hex.DecodeString(body); err != nil {
		return false
	}
	lower := strings.ToLower(body)
	if strings.Trim(lower, "0") == "" {
		return false
	}
	if body == lower || body == strings.ToUpper(body) {
		return true
	}

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	hash := hex.EncodeToString(h.Sum(nil))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c >= '0' && c <= '9' {
			continue
		}
		upper := hash[i] >= '8'
		if upper != (c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}
