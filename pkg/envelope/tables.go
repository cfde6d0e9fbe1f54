package envelope

// Cipher tables extracted from the vendor client's native library
// (libvlinkencrypt.so). The contents are opaque: they bake the vendor's
// key schedule into the lookup tables, so they cannot be derived and
// must match byte for byte. Sizes are validated by NewCipher.
//
// roundTable is laid out as ten rows of sixteen bytes; row 0 is the
// whitening layer, rows 1..9 feed the substitution rounds.

var roundTable = []byte{
	0x52, 0x2B, 0x3A, 0x2B, 0x34, 0x9C, 0xD0, 0x61, 0xF5, 0x35, 0x92, 0x5D, 0x65, 0xDB, 0x7B, 0x7B,
	0x0C, 0xCD, 0x2C, 0x51, 0xAA, 0xA5, 0x31, 0xDB, 0x08, 0xD9, 0xB4, 0x1A, 0xEF, 0x7E, 0x7F, 0x92,
	0x12, 0xB5, 0x0A, 0x74, 0x95, 0x4F, 0xA8, 0xCB, 0x07, 0x8F, 0x3E, 0x61, 0xF5, 0x92, 0x66, 0x17,
	0xD8, 0x67, 0xE5, 0xA5, 0xC6, 0xDD, 0xC9, 0xF3, 0x48, 0xC1, 0xDF, 0xA6, 0x51, 0x40, 0x65, 0xE2,
	0x9B, 0xAD, 0xCE, 0x67, 0xDE, 0xC3, 0xE4, 0xBD, 0x86, 0x0B, 0xFA, 0x13, 0x3E, 0x44, 0xB0, 0x58,
	0xB9, 0x2A, 0x40, 0x03, 0xFD, 0xFE, 0x9C, 0x0E, 0xA3, 0x32, 0x6E, 0x33, 0x6D, 0xB0, 0x2E, 0x8B,
	0x46, 0x05, 0xBA, 0x24, 0x4E, 0xBD, 0xF6, 0xC5, 0x81, 0x04, 0x7F, 0x41, 0x3E, 0x81, 0xBE, 0xB0,
	0x07, 0x38, 0x74, 0xB8, 0x28, 0xD0, 0x3D, 0xCA, 0x28, 0x68, 0x55, 0x6A, 0x28, 0x00, 0x92, 0xB9,
	0x35, 0x9D, 0x62, 0xA7, 0x87, 0x25, 0xFD, 0x2B, 0x01, 0x55, 0x33, 0x0E, 0x0A, 0xF6, 0xC5, 0x0F,
	0x14, 0x70, 0x3B, 0x59, 0xCD, 0x59, 0x9C, 0xCC, 0x90, 0x2C, 0x91, 0xF3, 0x5E, 0x31, 0xF8, 0x6A,
}

var subTableEnc = []byte{
	0xA0, 0x46, 0x41, 0xDE, 0xE7, 0x84, 0x29, 0x0A, 0x16, 0x89, 0x6A, 0x33, 0x17, 0x58, 0x81, 0xF7,
	0xAF, 0xCA, 0xFE, 0x09, 0xA3, 0x51, 0x4E, 0x9E, 0x5D, 0xDF, 0x23, 0x99, 0x2F, 0x69, 0x10, 0xF4,
	0xB9, 0xF6, 0xF1, 0x06, 0x93, 0xA7, 0xE8, 0xD6, 0x1F, 0x97, 0x74, 0x64, 0xB4, 0x6D, 0x1C, 0x00,
	0xA4, 0xAC, 0x0F, 0x66, 0x7E, 0x08, 0xBA, 0xBB, 0xD5, 0xCD, 0x85, 0x56, 0x7B, 0xC5, 0x45, 0x38,
	0x9B, 0x9C, 0xA6, 0xDA, 0x54, 0x37, 0x73, 0x3A, 0xD9, 0x34, 0x14, 0x1D, 0x36, 0xDD, 0xCF, 0xD7,
	0x11, 0x4D, 0x96, 0xDB, 0x43, 0xE0, 0xCE, 0x19, 0x70, 0xB7, 0xC4, 0xE2, 0xE4, 0x2E, 0xA8, 0x2D,
	0x3F, 0x63, 0x01, 0x8B, 0x75, 0xA1, 0x86, 0x95, 0x20, 0x3B, 0x9F, 0x47, 0xB1, 0xF8, 0xF5, 0xF3,
	0xB3, 0xCC, 0xCB, 0x90, 0xC7, 0x5A, 0x7F, 0xED, 0xC0, 0xD1, 0x5F, 0x2A, 0x72, 0x04, 0x59, 0x12,
	0x0D, 0x42, 0x91, 0x02, 0x57, 0xC8, 0xE5, 0x24, 0x8A, 0x6F, 0x8E, 0x61, 0xE3, 0x9D, 0xD4, 0x21,
	0x65, 0x7D, 0x4F, 0xDC, 0x39, 0xC9, 0x5E, 0x80, 0x98, 0x28, 0x0C, 0x32, 0x07, 0xAB, 0x7A, 0xFA,
	0xFB, 0xC3, 0x50, 0xF0, 0xE6, 0xA5, 0x0B, 0x76, 0x87, 0x4A, 0xE1, 0xEB, 0xC1, 0x82, 0x49, 0xB6,
	0x05, 0x48, 0xE9, 0x79, 0x52, 0x25, 0x8D, 0x13, 0xBF, 0x92, 0x8F, 0x2B, 0x77, 0x68, 0x8C, 0x31,
	0x40, 0xB2, 0xD0, 0xFF, 0xAA, 0x03, 0xFD, 0x22, 0xAD, 0xAE, 0xEA, 0x62, 0x94, 0xEC, 0x55, 0xD2,
	0x30, 0x53, 0x83, 0x3C, 0x35, 0xA2, 0x6B, 0xA9, 0xF2, 0x26, 0x5B, 0xB0, 0x2C, 0xB5, 0x6C, 0x78,
	0x5C, 0xEF, 0xFC, 0xF9, 0xBC, 0x15, 0x4B, 0x71, 0xD3, 0xC6, 0x60, 0x88, 0x4C, 0x0E, 0x9A, 0xC2,
	0x44, 0x1A, 0x1B, 0x27, 0x1E, 0x7C, 0xEE, 0xBD, 0xD8, 0xBE, 0x67, 0x3D, 0xB8, 0x18, 0x6E, 0x3E,
}

var subTableDec = []byte{
	0xF2, 0xE1, 0x86, 0x0D, 0x0C, 0x2A, 0xAE, 0x85, 0x79, 0x37, 0x00, 0xBD, 0x87, 0x2C, 0x55, 0x3A,
	0x26, 0x05, 0xF8, 0xFB, 0x20, 0x51, 0xB8, 0x7E, 0xE0, 0x28, 0x56, 0xC6, 0xCA, 0x97, 0xAA, 0x22,
	0x38, 0xF7, 0x7C, 0xB9, 0x18, 0x4B, 0xBC, 0xC7, 0xDA, 0x9B, 0x5D, 0x1C, 0xFE, 0xFC, 0xB5, 0x8D,
	0x5C, 0x7B, 0xA1, 0xB0, 0x45, 0x1D, 0x16, 0x64, 0x2D, 0x42, 0x41, 0x07, 0x1A, 0x8E, 0xC8, 0xF6,
	0xD7, 0xA4, 0x78, 0x94, 0x0F, 0x44, 0xB2, 0xA2, 0x50, 0xCC, 0x03, 0xC2, 0xA5, 0xE8, 0xC5, 0xF1,
	0x0B, 0x5E, 0x5B, 0x4D, 0xE3, 0xEC, 0x09, 0x46, 0xA3, 0x76, 0x5A, 0xDD, 0xD3, 0x83, 0x68, 0xE6,
	0x32, 0x80, 0x9D, 0xC4, 0x10, 0xB3, 0x33, 0x7A, 0x66, 0x25, 0x24, 0xFA, 0x9E, 0x72, 0x4A, 0x12,
	0xC9, 0xC0, 0x3F, 0x54, 0xB6, 0x48, 0xAF, 0xCB, 0x8A, 0x92, 0x52, 0x95, 0x47, 0xF4, 0x40, 0xF0,
	0x53, 0xDF, 0x99, 0xF3, 0x1B, 0xD0, 0xDB, 0xFD, 0xBE, 0x89, 0xE5, 0xCF, 0x58, 0x8F, 0x62, 0xD6,
	0x31, 0x75, 0x60, 0x49, 0xEA, 0xE7, 0xD1, 0x3B, 0x90, 0xB1, 0x7D, 0x02, 0x59, 0x84, 0x2B, 0x3E,
	0x70, 0x1F, 0xB7, 0x74, 0x9A, 0x57, 0xA0, 0xE9, 0x88, 0xEE, 0x4C, 0x63, 0x11, 0x34, 0xAC, 0xF9,
	0x6A, 0x2F, 0xBB, 0x96, 0x6E, 0xAD, 0x6D, 0xC3, 0x36, 0x04, 0xD9, 0x73, 0x27, 0x35, 0xBA, 0x0A,
	0xA9, 0xE2, 0xCD, 0x3D, 0xCE, 0x0E, 0xED, 0x5F, 0xEB, 0x14, 0x13, 0x4E, 0x17, 0x39, 0xDC, 0x2E,
	0x08, 0xB4, 0xF5, 0xBF, 0x15, 0x81, 0xD2, 0x19, 0x6B, 0xD8, 0x8C, 0x7F, 0x93, 0xD4, 0x77, 0x6C,
	0xDE, 0x4F, 0xD5, 0xFF, 0x61, 0x69, 0xEF, 0x43, 0xA8, 0x71, 0x9C, 0x9F, 0x65, 0x30, 0x6F, 0x21,
	0x23, 0x82, 0xC1, 0x06, 0x29, 0xA7, 0x98, 0x67, 0xAB, 0xA6, 0x01, 0x8B, 0xE4, 0x91, 0x1E, 0x3C,
}

var permTable = []byte{
	0x08, 0x02, 0x0C, 0x0A, 0x0F, 0x0D, 0x0E, 0x09, 0x04, 0x00, 0x05, 0x06, 0x03, 0x01, 0x07, 0x0B,
}

var schedLeft = []byte{
	0x02, 0x01, 0x07, 0x03, 0x00, 0x04, 0x05, 0x06,
}

var schedRight = []byte{
	0x05, 0x06, 0x01, 0x02, 0x00, 0x07, 0x03, 0x04,
}

var finalTableEnc = []byte{
	0x93, 0xA8, 0x97, 0xEC, 0x33, 0x05, 0xC4, 0xC5, 0x7D, 0x95, 0xF4, 0x6F, 0x0D, 0xD5, 0xE4, 0x94,
	0x3C, 0x36, 0xF6, 0x2F, 0xB5, 0x61, 0x79, 0x81, 0xDC, 0x6E, 0x09, 0x68, 0xD1, 0x9F, 0x2E, 0x39,
	0x5F, 0x9A, 0x83, 0xF3, 0x5C, 0xF5, 0x31, 0xD9, 0xFE, 0x77, 0x4C, 0x32, 0xDE, 0xE8, 0x19, 0x4F,
	0x00, 0x71, 0xE7, 0x3F, 0xBE, 0x57, 0x04, 0x88, 0x06, 0xDD, 0x9B, 0xB2, 0xFA, 0x60, 0xA2, 0x8A,
	0x2D, 0x49, 0xA7, 0x0C, 0x45, 0xA1, 0x21, 0x42, 0x41, 0x70, 0x82, 0xF2, 0x7A, 0x3E, 0x0E, 0x23,
	0x73, 0x0F, 0x02, 0x40, 0x14, 0x38, 0x7C, 0x55, 0x27, 0x46, 0x29, 0x6B, 0xA9, 0xFB, 0x85, 0xF8,
	0xCC, 0x7F, 0xB3, 0xDB, 0x28, 0xC3, 0xAA, 0x34, 0x2A, 0xEF, 0x3A, 0x07, 0x67, 0xA3, 0xBD, 0xF7,
	0x65, 0x08, 0x20, 0x4D, 0xE9, 0xD4, 0x92, 0xFC, 0x18, 0x6D, 0xFF, 0x64, 0x91, 0x50, 0x7E, 0x7B,
	0xCD, 0xC9, 0x1E, 0xB4, 0xAC, 0x37, 0xAE, 0x8E, 0x1B, 0xAF, 0x5A, 0xA5, 0xA6, 0x6C, 0xC1, 0x5B,
	0x69, 0x76, 0xD2, 0x84, 0xBF, 0xBB, 0xB6, 0x01, 0xE6, 0x15, 0x9E, 0x5D, 0x62, 0xFD, 0x44, 0xAB,
	0xD7, 0xC0, 0x11, 0x52, 0xE1, 0x35, 0x30, 0x3B, 0x1C, 0x8D, 0xCA, 0x0B, 0x16, 0xE3, 0xD3, 0x66,
	0xB9, 0x74, 0xE2, 0x75, 0xC2, 0xC7, 0x59, 0xD0, 0xF0, 0xEA, 0xCF, 0xB7, 0xCB, 0xA4, 0xE0, 0xDF,
	0xBA, 0x51, 0x22, 0x63, 0x0A, 0x53, 0xF9, 0xC8, 0x87, 0x4A, 0x96, 0xAD, 0x26, 0x12, 0xA0, 0x48,
	0xEE, 0x1A, 0x43, 0x2C, 0x17, 0xB0, 0x99, 0x56, 0xB8, 0x8F, 0x86, 0x98, 0x13, 0xC6, 0xD8, 0x47,
	0x89, 0x78, 0xF1, 0x4B, 0x9D, 0x54, 0x24, 0x3D, 0x90, 0x58, 0x1F, 0x10, 0xEB, 0xBC, 0x5E, 0xD6,
	0x25, 0x8B, 0xDA, 0x4E, 0xB1, 0x2B, 0x6A, 0xED, 0xCE, 0x72, 0xE5, 0x1D, 0x8C, 0x80, 0x03, 0x9C,
}

var finalTableDec = []byte{
	0x30, 0x97, 0x52, 0xFE, 0x36, 0x05, 0x38, 0x6B, 0x71, 0x1A, 0xC4, 0xAB, 0x43, 0x0C, 0x4E, 0x51,
	0xEB, 0xA2, 0xCD, 0xDC, 0x54, 0x99, 0xAC, 0xD4, 0x78, 0x2E, 0xD1, 0x88, 0xA8, 0xFB, 0x82, 0xEA,
	0x72, 0x46, 0xC2, 0x4F, 0xE6, 0xF0, 0xCC, 0x58, 0x64, 0x5A, 0x68, 0xF5, 0xD3, 0x40, 0x1E, 0x13,
	0xA6, 0x26, 0x2B, 0x04, 0x67, 0xA5, 0x11, 0x85, 0x55, 0x1F, 0x6A, 0xA7, 0x10, 0xE7, 0x4D, 0x33,
	0x53, 0x48, 0x47, 0xD2, 0x9E, 0x44, 0x59, 0xDF, 0xCF, 0x41, 0xC9, 0xE3, 0x2A, 0x73, 0xF3, 0x2F,
	0x7D, 0xC1, 0xA3, 0xC5, 0xE5, 0x57, 0xD7, 0x35, 0xE9, 0xB6, 0x8A, 0x8F, 0x24, 0x9B, 0xEE, 0x20,
	0x3D, 0x15, 0x9C, 0xC3, 0x7B, 0x70, 0xAF, 0x6C, 0x1B, 0x90, 0xF6, 0x5B, 0x8D, 0x79, 0x19, 0x0B,
	0x49, 0x31, 0xF9, 0x50, 0xB1, 0xB3, 0x91, 0x29, 0xE1, 0x16, 0x4C, 0x7F, 0x56, 0x08, 0x7E, 0x61,
	0xFD, 0x17, 0x4A, 0x22, 0x93, 0x5E, 0xDA, 0xC8, 0x37, 0xE0, 0x3F, 0xF1, 0xFC, 0xA9, 0x87, 0xD9,
	0xE8, 0x7C, 0x76, 0x00, 0x0F, 0x09, 0xCA, 0x02, 0xDB, 0xD6, 0x21, 0x3A, 0xFF, 0xE4, 0x9A, 0x1D,
	0xCE, 0x45, 0x3E, 0x6D, 0xBD, 0x8B, 0x8C, 0x42, 0x01, 0x5C, 0x66, 0x9F, 0x84, 0xCB, 0x86, 0x89,
	0xD5, 0xF4, 0x3B, 0x62, 0x83, 0x14, 0x96, 0xBB, 0xD8, 0xB0, 0xC0, 0x95, 0xED, 0x6E, 0x34, 0x94,
	0xA1, 0x8E, 0xB4, 0x65, 0x06, 0x07, 0xDD, 0xB5, 0xC7, 0x81, 0xAA, 0xBC, 0x60, 0x80, 0xF8, 0xBA,
	0xB7, 0x1C, 0x92, 0xAE, 0x75, 0x0D, 0xEF, 0xA0, 0xDE, 0x27, 0xF2, 0x63, 0x18, 0x39, 0x2C, 0xBF,
	0xBE, 0xA4, 0xB2, 0xAD, 0x0E, 0xFA, 0x98, 0x32, 0x2D, 0x74, 0xB9, 0xEC, 0x03, 0xF7, 0xD0, 0x69,
	0xB8, 0xE2, 0x4B, 0x23, 0x0A, 0x25, 0x12, 0x6F, 0x5F, 0xC6, 0x3C, 0x5D, 0x77, 0x9D, 0x28, 0x7A,
}
