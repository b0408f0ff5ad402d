// Package vision asks a generative vision model where the photos on a scanned
// page are and turns its free-form answer into candidate regions.
//
// The model is reached through langchaingo, so any provider it supports with
// image input (OpenAI, Ollama, Anthropic, Mistral) can be configured. Model
// output is treated as untrusted text: ParseRegions never fails, it simply
// returns fewer (or zero) regions when the answer is malformed.
package vision
