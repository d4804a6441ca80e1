// Package compiler turns CUE rubric templates into rubric documents.
//
// A template lives under the top-level "rubric" struct:
//
//	rubric: intro: {
//		title:      "Intro Review"
//		orgDefault: false
//		blocks: [
//			{heading: "Intro"},
//			{text: "Read the draft first."},
//			{prompt: {type: "dropdown", text: "Verdict", required: true, options: ["Accept", "Revise"]}},
//		]
//	}
//
// Blocks are inserted through the ordering engine in list order and dropdown
// options through options.List, so a compiled template always has dense
// block orders and derived option keys.
package compiler
