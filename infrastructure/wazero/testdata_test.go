package wazero

// jsonWasm exports memory, allocate (always 1024), echo (returns its input
// as the packed result) and add(i32, i32) -> i32.
var jsonWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, 0x01, 0x12, 0x03, 0x60,
	0x01, 0x7f, 0x01, 0x7f, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7e, 0x60, 0x02,
	0x7f, 0x7f, 0x01, 0x7f, 0x03, 0x04, 0x03, 0x00, 0x01, 0x02, 0x05, 0x03,
	0x01, 0x00, 0x01, 0x07, 0x22, 0x04, 0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72,
	0x79, 0x02, 0x00, 0x08, 0x61, 0x6c, 0x6c, 0x6f, 0x63, 0x61, 0x74, 0x65,
	0x00, 0x00, 0x04, 0x65, 0x63, 0x68, 0x6f, 0x00, 0x01, 0x03, 0x61, 0x64,
	0x64, 0x00, 0x02, 0x0a, 0x1c, 0x03, 0x05, 0x00, 0x41, 0x80, 0x08, 0x0b,
	0x0c, 0x00, 0x20, 0x00, 0xad, 0x42, 0x20, 0x86, 0x20, 0x01, 0xad, 0x84,
	0x0b, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b,
}

// logWasm imports port_host.log_message and exports hello, which logs
// {"level":"info","message":"hello from wasm"} from a data segment.
var logWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, 0x01, 0x08, 0x02, 0x60,
	0x01, 0x7e, 0x00, 0x60, 0x00, 0x00, 0x02, 0x19, 0x01, 0x09, 0x70, 0x6f,
	0x72, 0x74, 0x5f, 0x68, 0x6f, 0x73, 0x74, 0x0b, 0x6c, 0x6f, 0x67, 0x5f,
	0x6d, 0x65, 0x73, 0x73, 0x61, 0x67, 0x65, 0x00, 0x00, 0x03, 0x02, 0x01,
	0x01, 0x05, 0x03, 0x01, 0x00, 0x01, 0x07, 0x12, 0x02, 0x06, 0x6d, 0x65,
	0x6d, 0x6f, 0x72, 0x79, 0x02, 0x00, 0x05, 0x68, 0x65, 0x6c, 0x6c, 0x6f,
	0x00, 0x01, 0x0a, 0x0d, 0x01, 0x0b, 0x00, 0x42, 0xac, 0x80, 0x80, 0x80,
	0x80, 0x02, 0x10, 0x00, 0x0b, 0x0b, 0x32, 0x01, 0x00, 0x41, 0x10, 0x0b,
	0x2c, 0x7b, 0x22, 0x6c, 0x65, 0x76, 0x65, 0x6c, 0x22, 0x3a, 0x22, 0x69,
	0x6e, 0x66, 0x6f, 0x22, 0x2c, 0x22, 0x6d, 0x65, 0x73, 0x73, 0x61, 0x67,
	0x65, 0x22, 0x3a, 0x22, 0x68, 0x65, 0x6c, 0x6c, 0x6f, 0x20, 0x66, 0x72,
	0x6f, 0x6d, 0x20, 0x77, 0x61, 0x73, 0x6d, 0x22, 0x7d,
}

// spinWasm exports spin, which loops forever.
var spinWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, 0x01, 0x04, 0x01, 0x60,
	0x00, 0x00, 0x03, 0x02, 0x01, 0x00, 0x07, 0x08, 0x01, 0x04, 0x73, 0x70,
	0x69, 0x6e, 0x00, 0x00, 0x0a, 0x09, 0x01, 0x07, 0x00, 0x03, 0x40, 0x0c,
	0x00, 0x0b, 0x0b,
}
