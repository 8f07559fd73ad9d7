// Package tokenizer maps text to token ids and back.
//
// Two implementations are provided:
//   - ByteVocabulary: one id per distinct byte of a training corpus, the
//     vocabulary the byte-level language model is trained on
//   - TikToken: OpenAI BPE encodings (cl100k_base, p50k_base, r50k_base)
//
// Example usage:
//
//	vocab, err := tokenizer.BuildVocabulary(ctx, "input.txt")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ids, err := vocab.Encode("hello")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	text, err := vocab.Decode(ids)
package tokenizer
