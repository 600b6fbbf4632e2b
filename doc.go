// Package ssfpatch decodes, patches and re-encodes SSF1 save containers.
//
// An SSF1 file is an opaque header followed by a stream of zlib chunks. The
// decompressed payload holds a run of SMBH blocks, each a named record that
// usually carries a JSON document. The package edits one property inside
// selected JSON documents and rebuilds the file, keeping every other header
// and payload byte as it was:
//
//	dec, _ := ssfpatch.DecodeContainer(file)
//	seq, _ := ssfpatch.ParseBlocks(dec.Payload)
//	res, _ := ssfpatch.ApplyPropertyPatch(seq, "request-system", "Establish_Task_Build_Crane", value)
//	out, _ := ssfpatch.EncodeContainer(dec.Header, ssfpatch.BuildBlocks(res.Sequence), ssfpatch.DefaultChunkSize)
//
// All functions work on in-memory buffers and never touch the filesystem.
package ssfpatch
