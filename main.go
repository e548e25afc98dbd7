// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/htlee1999/food-map/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
