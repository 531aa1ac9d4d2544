// Package extract pulls structured data out of free-form model output.
//
// Models asked for JSON often wrap it in prose or a markdown fence. JSON
// tries, in order, the whole text, the first fenced block (with or without
// a json tag) and the span from the first '{' to the last '}'. CodeBlocks
// returns every fenced block with its language tag.
package extract
