// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	old := Version
	defer func() { Version = old }()
	Version = "1.2.3"

	if got := Short(); got != "1.2.3" {
		t.Errorf("Short() = %q, want 1.2.3", got)
	}
	if info := Info(); !strings.HasPrefix(info, "piiscope 1.2.3 (commit: ") {
		t.Errorf("Info() = %q", info)
	}

	full := Full()
	for _, key := range []string{"version", "commit", "buildDate", "goVersion", "platform"} {
		if full[key] == "" {
			t.Errorf("Full()[%q] is empty", key)
		}
	}
}
