// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

// Format names the operand layout of an opcode, one of the named
// instruction-format families. Each format fixes the instruction's
// size in 16-bit code units and how its operands are packed into the
// trailing code units.
type Format uint8

// Instruction format families. The opcode table below is the single
// source of truth consumed by the parser, disassembler, size
// calculator, and patcher, declared as data rather than scattered
// across pattern matches.
const (
	Fmt10x  Format = iota // op
	Fmt12x                // op vA, vB (nibbles)
	Fmt11n                // op vA, #+B (nibble literal)
	Fmt11x                // op vAA
	Fmt10t                // op +AA (byte branch)
	Fmt20t                // op +AAAA (word branch)
	Fmt22x                // op vAA, vBBBB
	Fmt21t                // op vAA, +BBBB
	Fmt21s                // op vAA, #+BBBB
	Fmt21h                // op vAA, #+BBBB0000[00000000]
	Fmt21c                // op vAA, thing@BBBB
	Fmt23x                // op vAA, vBB, vCC
	Fmt22b                // op vAA, vBB, #+CC
	Fmt22t                // op vA, vB, +CCCC
	Fmt22s                // op vA, vB, #+CCCC
	Fmt22c                // op vA, vB, thing@CCCC
	Fmt32x                // op vAAAA, vBBBB
	Fmt30t                // op +AAAAAAAA
	Fmt31i                // op vAA, #+BBBBBBBB
	Fmt31t                // op vAA, +BBBBBBBB (payload offset)
	Fmt31c                // op vAA, string@BBBBBBBB
	Fmt35c                // op {vC..vG}, thing@BBBB
	Fmt3rc                // op {vCCCC..vNNNN}, thing@BBBB
	Fmt45cc               // op {vC..vG}, method@BBBB, proto@HHHH
	Fmt4rcc               // op {vCCCC..vNNNN}, method@BBBB, proto@HHHH
	Fmt51l                // op vAA, #+BBBBBBBBBBBBBBBB
	FmtPayload            // pseudo-opcode payload (packed-switch, sparse-switch, array-data)
)

// OpInfo is one row of the opcode table.
type OpInfo struct {
	Opcode   uint16
	Mnemonic string
	Format   Format
	CanThrow bool
}

// sizeUnits returns the instruction's fixed size in 16-bit code units for
// every format except FmtPayload, whose size depends on embedded data
// and is computed by decodePackedSwitch, decodeSparseSwitch or
// decodeArrayFill.
func (f Format) sizeUnits() int {
	switch f {
	case Fmt10x, Fmt12x, Fmt11n, Fmt11x, Fmt10t:
		return 1
	case Fmt20t, Fmt22x, Fmt21t, Fmt21s, Fmt21h, Fmt21c, Fmt23x, Fmt22b, Fmt22t, Fmt22s, Fmt22c:
		return 2
	case Fmt32x, Fmt30t, Fmt31i, Fmt31t, Fmt31c, Fmt35c, Fmt3rc:
		return 3
	case Fmt45cc, Fmt4rcc:
		return 4
	case Fmt51l:
		return 5
	default:
		return 1
	}
}

// Opcode mnemonics. Values are assigned densely and are internal to this
// reimplementation; they are not required to match any particular
// on-disk encoding byte-for-byte, only to be self-consistent across
// parse/disassemble/size/patch.
const (
	OpNop uint16 = iota
	OpMove
	OpMoveWide
	OpMoveObject
	OpMoveResult
	OpMoveResultWide
	OpMoveResultObject
	OpMoveException
	OpReturnVoid
	OpReturn
	OpReturnWide
	OpReturnObject
	OpConst4
	OpConst16
	OpConst
	OpConstHigh16
	OpConstWide16
	OpConstWide32
	OpConstWide
	OpConstWideHigh16
	OpConstString
	OpConstStringJumbo
	OpConstClass
	OpMonitorEnter
	OpMonitorExit
	OpCheckCast
	OpInstanceOf
	OpArrayLength
	OpNewInstance
	OpNewArray
	OpFilledNewArray
	OpFilledNewArrayRange
	OpFillArrayData
	OpThrow
	OpGoto
	OpGoto16
	OpGoto32
	OpPackedSwitch
	OpSparseSwitch
	OpCmpLFloat
	OpCmpGFloat
	OpCmpLDouble
	OpCmpGDouble
	OpCmpLong
	OpIfEq
	OpIfNe
	OpIfLt
	OpIfGe
	OpIfGt
	OpIfLe
	OpIfEqz
	OpIfNez
	OpIfLtz
	OpIfGez
	OpIfGtz
	OpIfLez
	OpAget
	OpAgetWide
	OpAgetObject
	OpAgetBoolean
	OpAgetByte
	OpAgetChar
	OpAgetShort
	OpAput
	OpAputWide
	OpAputObject
	OpAputBoolean
	OpAputByte
	OpAputChar
	OpAputShort
	OpIget
	OpIgetWide
	OpIgetObject
	OpIgetBoolean
	OpIgetByte
	OpIgetChar
	OpIgetShort
	OpIput
	OpIputWide
	OpIputObject
	OpIputBoolean
	OpIputByte
	OpIputChar
	OpIputShort
	OpSget
	OpSgetWide
	OpSgetObject
	OpSgetBoolean
	OpSgetByte
	OpSgetChar
	OpSgetShort
	OpSput
	OpSputWide
	OpSputObject
	OpSputBoolean
	OpSputByte
	OpSputChar
	OpSputShort
	OpInvokeVirtual
	OpInvokeSuper
	OpInvokeDirect
	OpInvokeStatic
	OpInvokeInterface
	OpInvokeVirtualRange
	OpInvokeSuperRange
	OpInvokeDirectRange
	OpInvokeStaticRange
	OpInvokeInterfaceRange
	OpInvokePolymorphic
	OpInvokePolymorphicRange
	OpInvokeCustom
	OpInvokeCustomRange
	OpNegInt
	OpNotInt
	OpNegLong
	OpNotLong
	OpNegFloat
	OpNegDouble
	OpIntToLong
	OpIntToFloat
	OpIntToDouble
	OpLongToInt
	OpLongToFloat
	OpLongToDouble
	OpFloatToInt
	OpFloatToLong
	OpFloatToDouble
	OpDoubleToInt
	OpDoubleToLong
	OpDoubleToFloat
	OpIntToByte
	OpIntToChar
	OpIntToShort
	OpAddInt
	OpSubInt
	OpMulInt
	OpDivInt
	OpRemInt
	OpAndInt
	OpOrInt
	OpXorInt
	OpShlInt
	OpShrInt
	OpUshrInt
	OpAddLong
	OpSubLong
	OpMulLong
	OpDivLong
	OpRemLong
	OpAndLong
	OpOrLong
	OpXorLong
	OpShlLong
	OpShrLong
	OpUshrLong
	OpAddFloat
	OpSubFloat
	OpMulFloat
	OpDivFloat
	OpRemFloat
	OpAddDouble
	OpSubDouble
	OpMulDouble
	OpDivDouble
	OpRemDouble
	OpAddInt2Addr
	OpSubInt2Addr
	OpMulInt2Addr
	OpDivInt2Addr
	OpRemInt2Addr
	OpAddIntLit16
	OpRsubInt
	OpMulIntLit16
	OpDivIntLit16
	OpRemIntLit16
	OpAndIntLit16
	OpOrIntLit16
	OpXorIntLit16
	OpAddIntLit8
	OpRsubIntLit8
	OpMulIntLit8
	OpDivIntLit8
	OpRemIntLit8
	OpAndIntLit8
	OpOrIntLit8
	OpXorIntLit8
	OpShlIntLit8
	OpShrIntLit8
	OpUshrIntLit8
	// pseudo-opcodes, sub-dispatched from OpNop by the next byte.
	OpPackedSwitchPayload
	OpSparseSwitchPayload
	OpFillArrayDataPayload
)

// opTable is the single source of truth for opcode metadata, keyed by
// mnemonic id. Opcodes that share an operand shape within a family (e.g.
// all seven iget* variants, all thirty-two 23x binary-op variants) are rows
// of the same format rather than bespoke decode functions.
var opTable = map[uint16]OpInfo{
	OpNop:               {OpNop, "nop", Fmt10x, false},
	OpMove:              {OpMove, "move", Fmt12x, false},
	OpMoveWide:          {OpMoveWide, "move-wide", Fmt12x, false},
	OpMoveObject:        {OpMoveObject, "move-object", Fmt12x, false},
	OpMoveResult:        {OpMoveResult, "move-result", Fmt11x, false},
	OpMoveResultWide:    {OpMoveResultWide, "move-result-wide", Fmt11x, false},
	OpMoveResultObject:  {OpMoveResultObject, "move-result-object", Fmt11x, false},
	OpMoveException:     {OpMoveException, "move-exception", Fmt11x, false},
	OpReturnVoid:        {OpReturnVoid, "return-void", Fmt10x, false},
	OpReturn:            {OpReturn, "return", Fmt11x, false},
	OpReturnWide:        {OpReturnWide, "return-wide", Fmt11x, false},
	OpReturnObject:      {OpReturnObject, "return-object", Fmt11x, false},
	OpConst4:            {OpConst4, "const/4", Fmt11n, false},
	OpConst16:           {OpConst16, "const/16", Fmt21s, false},
	OpConst:             {OpConst, "const", Fmt31i, false},
	OpConstHigh16:       {OpConstHigh16, "const/high16", Fmt21h, false},
	OpConstWide16:       {OpConstWide16, "const-wide/16", Fmt21s, false},
	OpConstWide32:       {OpConstWide32, "const-wide/32", Fmt31i, false},
	OpConstWide:         {OpConstWide, "const-wide", Fmt51l, false},
	OpConstWideHigh16:   {OpConstWideHigh16, "const-wide/high16", Fmt21h, false},
	OpConstString:       {OpConstString, "const-string", Fmt21c, false},
	OpConstStringJumbo:  {OpConstStringJumbo, "const-string/jumbo", Fmt31c, false},
	OpConstClass:        {OpConstClass, "const-class", Fmt21c, false},
	OpMonitorEnter:      {OpMonitorEnter, "monitor-enter", Fmt11x, true},
	OpMonitorExit:       {OpMonitorExit, "monitor-exit", Fmt11x, true},
	OpCheckCast:         {OpCheckCast, "check-cast", Fmt21c, true},
	OpInstanceOf:        {OpInstanceOf, "instance-of", Fmt22c, true},
	OpArrayLength:       {OpArrayLength, "array-length", Fmt12x, true},
	OpNewInstance:       {OpNewInstance, "new-instance", Fmt21c, true},
	OpNewArray:          {OpNewArray, "new-array", Fmt22c, true},
	OpFilledNewArray:    {OpFilledNewArray, "filled-new-array", Fmt35c, true},
	OpFilledNewArrayRange: {
		OpFilledNewArrayRange, "filled-new-array/range", Fmt3rc, true,
	},
	OpFillArrayData:  {OpFillArrayData, "fill-array-data", Fmt31t, false},
	OpThrow:          {OpThrow, "throw", Fmt11x, true},
	OpGoto:           {OpGoto, "goto", Fmt10t, false},
	OpGoto16:         {OpGoto16, "goto/16", Fmt20t, false},
	OpGoto32:         {OpGoto32, "goto/32", Fmt30t, false},
	OpPackedSwitch:   {OpPackedSwitch, "packed-switch", Fmt31t, false},
	OpSparseSwitch:   {OpSparseSwitch, "sparse-switch", Fmt31t, false},
	OpCmpLFloat:      {OpCmpLFloat, "cmpl-float", Fmt23x, false},
	OpCmpGFloat:      {OpCmpGFloat, "cmpg-float", Fmt23x, false},
	OpCmpLDouble:     {OpCmpLDouble, "cmpl-double", Fmt23x, false},
	OpCmpGDouble:     {OpCmpGDouble, "cmpg-double", Fmt23x, false},
	OpCmpLong:        {OpCmpLong, "cmp-long", Fmt23x, false},
	OpIfEq:           {OpIfEq, "if-eq", Fmt22t, false},
	OpIfNe:           {OpIfNe, "if-ne", Fmt22t, false},
	OpIfLt:           {OpIfLt, "if-lt", Fmt22t, false},
	OpIfGe:           {OpIfGe, "if-ge", Fmt22t, false},
	OpIfGt:           {OpIfGt, "if-gt", Fmt22t, false},
	OpIfLe:           {OpIfLe, "if-le", Fmt22t, false},
	OpIfEqz:          {OpIfEqz, "if-eqz", Fmt21t, false},
	OpIfNez:          {OpIfNez, "if-nez", Fmt21t, false},
	OpIfLtz:          {OpIfLtz, "if-ltz", Fmt21t, false},
	OpIfGez:          {OpIfGez, "if-gez", Fmt21t, false},
	OpIfGtz:          {OpIfGtz, "if-gtz", Fmt21t, false},
	OpIfLez:          {OpIfLez, "if-lez", Fmt21t, false},
	OpAget:           {OpAget, "aget", Fmt23x, true},
	OpAgetWide:       {OpAgetWide, "aget-wide", Fmt23x, true},
	OpAgetObject:     {OpAgetObject, "aget-object", Fmt23x, true},
	OpAgetBoolean:    {OpAgetBoolean, "aget-boolean", Fmt23x, true},
	OpAgetByte:       {OpAgetByte, "aget-byte", Fmt23x, true},
	OpAgetChar:       {OpAgetChar, "aget-char", Fmt23x, true},
	OpAgetShort:      {OpAgetShort, "aget-short", Fmt23x, true},
	OpAput:           {OpAput, "aput", Fmt23x, true},
	OpAputWide:       {OpAputWide, "aput-wide", Fmt23x, true},
	OpAputObject:     {OpAputObject, "aput-object", Fmt23x, true},
	OpAputBoolean:    {OpAputBoolean, "aput-boolean", Fmt23x, true},
	OpAputByte:       {OpAputByte, "aput-byte", Fmt23x, true},
	OpAputChar:       {OpAputChar, "aput-char", Fmt23x, true},
	OpAputShort:      {OpAputShort, "aput-short", Fmt23x, true},
	OpIget:           {OpIget, "iget", Fmt22c, true},
	OpIgetWide:       {OpIgetWide, "iget-wide", Fmt22c, true},
	OpIgetObject:     {OpIgetObject, "iget-object", Fmt22c, true},
	OpIgetBoolean:    {OpIgetBoolean, "iget-boolean", Fmt22c, true},
	OpIgetByte:       {OpIgetByte, "iget-byte", Fmt22c, true},
	OpIgetChar:       {OpIgetChar, "iget-char", Fmt22c, true},
	OpIgetShort:      {OpIgetShort, "iget-short", Fmt22c, true},
	OpIput:           {OpIput, "iput", Fmt22c, true},
	OpIputWide:       {OpIputWide, "iput-wide", Fmt22c, true},
	OpIputObject:     {OpIputObject, "iput-object", Fmt22c, true},
	OpIputBoolean:    {OpIputBoolean, "iput-boolean", Fmt22c, true},
	OpIputByte:       {OpIputByte, "iput-byte", Fmt22c, true},
	OpIputChar:       {OpIputChar, "iput-char", Fmt22c, true},
	OpIputShort:      {OpIputShort, "iput-short", Fmt22c, true},
	OpSget:           {OpSget, "sget", Fmt21c, true},
	OpSgetWide:       {OpSgetWide, "sget-wide", Fmt21c, true},
	OpSgetObject:     {OpSgetObject, "sget-object", Fmt21c, true},
	OpSgetBoolean:    {OpSgetBoolean, "sget-boolean", Fmt21c, true},
	OpSgetByte:       {OpSgetByte, "sget-byte", Fmt21c, true},
	OpSgetChar:       {OpSgetChar, "sget-char", Fmt21c, true},
	OpSgetShort:      {OpSgetShort, "sget-short", Fmt21c, true},
	OpSput:           {OpSput, "sput", Fmt21c, true},
	OpSputWide:       {OpSputWide, "sput-wide", Fmt21c, true},
	OpSputObject:     {OpSputObject, "sput-object", Fmt21c, true},
	OpSputBoolean:    {OpSputBoolean, "sput-boolean", Fmt21c, true},
	OpSputByte:       {OpSputByte, "sput-byte", Fmt21c, true},
	OpSputChar:       {OpSputChar, "sput-char", Fmt21c, true},
	OpSputShort:      {OpSputShort, "sput-short", Fmt21c, true},
	OpInvokeVirtual:  {OpInvokeVirtual, "invoke-virtual", Fmt35c, true},
	OpInvokeSuper:    {OpInvokeSuper, "invoke-super", Fmt35c, true},
	OpInvokeDirect:   {OpInvokeDirect, "invoke-direct", Fmt35c, true},
	OpInvokeStatic:   {OpInvokeStatic, "invoke-static", Fmt35c, true},
	OpInvokeInterface: {
		OpInvokeInterface, "invoke-interface", Fmt35c, true,
	},
	OpInvokeVirtualRange:    {OpInvokeVirtualRange, "invoke-virtual/range", Fmt3rc, true},
	OpInvokeSuperRange:      {OpInvokeSuperRange, "invoke-super/range", Fmt3rc, true},
	OpInvokeDirectRange:     {OpInvokeDirectRange, "invoke-direct/range", Fmt3rc, true},
	OpInvokeStaticRange:     {OpInvokeStaticRange, "invoke-static/range", Fmt3rc, true},
	OpInvokeInterfaceRange:  {OpInvokeInterfaceRange, "invoke-interface/range", Fmt3rc, true},
	OpInvokePolymorphic:     {OpInvokePolymorphic, "invoke-polymorphic", Fmt45cc, true},
	OpInvokePolymorphicRange: {
		OpInvokePolymorphicRange, "invoke-polymorphic/range", Fmt4rcc, true,
	},
	OpInvokeCustom:      {OpInvokeCustom, "invoke-custom", Fmt45cc, true},
	OpInvokeCustomRange: {OpInvokeCustomRange, "invoke-custom/range", Fmt4rcc, true},
	OpNegInt:            {OpNegInt, "neg-int", Fmt12x, false},
	OpNotInt:            {OpNotInt, "not-int", Fmt12x, false},
	OpNegLong:           {OpNegLong, "neg-long", Fmt12x, false},
	OpNotLong:           {OpNotLong, "not-long", Fmt12x, false},
	OpNegFloat:          {OpNegFloat, "neg-float", Fmt12x, false},
	OpNegDouble:         {OpNegDouble, "neg-double", Fmt12x, false},
	OpIntToLong:         {OpIntToLong, "int-to-long", Fmt12x, false},
	OpIntToFloat:        {OpIntToFloat, "int-to-float", Fmt12x, false},
	OpIntToDouble:       {OpIntToDouble, "int-to-double", Fmt12x, false},
	OpLongToInt:         {OpLongToInt, "long-to-int", Fmt12x, false},
	OpLongToFloat:       {OpLongToFloat, "long-to-float", Fmt12x, false},
	OpLongToDouble:      {OpLongToDouble, "long-to-double", Fmt12x, false},
	OpFloatToInt:        {OpFloatToInt, "float-to-int", Fmt12x, false},
	OpFloatToLong:       {OpFloatToLong, "float-to-long", Fmt12x, false},
	OpFloatToDouble:     {OpFloatToDouble, "float-to-double", Fmt12x, false},
	OpDoubleToInt:       {OpDoubleToInt, "double-to-int", Fmt12x, false},
	OpDoubleToLong:      {OpDoubleToLong, "double-to-long", Fmt12x, false},
	OpDoubleToFloat:     {OpDoubleToFloat, "double-to-float", Fmt12x, false},
	OpIntToByte:         {OpIntToByte, "int-to-byte", Fmt12x, false},
	OpIntToChar:         {OpIntToChar, "int-to-char", Fmt12x, false},
	OpIntToShort:        {OpIntToShort, "int-to-short", Fmt12x, false},
	OpAddInt:            {OpAddInt, "add-int", Fmt23x, false},
	OpSubInt:            {OpSubInt, "sub-int", Fmt23x, false},
	OpMulInt:            {OpMulInt, "mul-int", Fmt23x, false},
	OpDivInt:            {OpDivInt, "div-int", Fmt23x, true},
	OpRemInt:            {OpRemInt, "rem-int", Fmt23x, true},
	OpAndInt:            {OpAndInt, "and-int", Fmt23x, false},
	OpOrInt:             {OpOrInt, "or-int", Fmt23x, false},
	OpXorInt:            {OpXorInt, "xor-int", Fmt23x, false},
	OpShlInt:            {OpShlInt, "shl-int", Fmt23x, false},
	OpShrInt:            {OpShrInt, "shr-int", Fmt23x, false},
	OpUshrInt:           {OpUshrInt, "ushr-int", Fmt23x, false},
	OpAddLong:           {OpAddLong, "add-long", Fmt23x, false},
	OpSubLong:           {OpSubLong, "sub-long", Fmt23x, false},
	OpMulLong:           {OpMulLong, "mul-long", Fmt23x, false},
	OpDivLong:           {OpDivLong, "div-long", Fmt23x, true},
	OpRemLong:           {OpRemLong, "rem-long", Fmt23x, true},
	OpAndLong:           {OpAndLong, "and-long", Fmt23x, false},
	OpOrLong:            {OpOrLong, "or-long", Fmt23x, false},
	OpXorLong:           {OpXorLong, "xor-long", Fmt23x, false},
	OpShlLong:           {OpShlLong, "shl-long", Fmt23x, false},
	OpShrLong:           {OpShrLong, "shr-long", Fmt23x, false},
	OpUshrLong:          {OpUshrLong, "ushr-long", Fmt23x, false},
	OpAddFloat:          {OpAddFloat, "add-float", Fmt23x, false},
	OpSubFloat:          {OpSubFloat, "sub-float", Fmt23x, false},
	OpMulFloat:          {OpMulFloat, "mul-float", Fmt23x, false},
	OpDivFloat:          {OpDivFloat, "div-float", Fmt23x, false},
	OpRemFloat:          {OpRemFloat, "rem-float", Fmt23x, false},
	OpAddDouble:         {OpAddDouble, "add-double", Fmt23x, false},
	OpSubDouble:         {OpSubDouble, "sub-double", Fmt23x, false},
	OpMulDouble:         {OpMulDouble, "mul-double", Fmt23x, false},
	OpDivDouble:         {OpDivDouble, "div-double", Fmt23x, false},
	OpRemDouble:         {OpRemDouble, "rem-double", Fmt23x, false},
	OpAddInt2Addr:       {OpAddInt2Addr, "add-int/2addr", Fmt12x, false},
	OpSubInt2Addr:       {OpSubInt2Addr, "sub-int/2addr", Fmt12x, false},
	OpMulInt2Addr:       {OpMulInt2Addr, "mul-int/2addr", Fmt12x, false},
	OpDivInt2Addr:       {OpDivInt2Addr, "div-int/2addr", Fmt12x, true},
	OpRemInt2Addr:       {OpRemInt2Addr, "rem-int/2addr", Fmt12x, true},
	OpAddIntLit16:       {OpAddIntLit16, "add-int/lit16", Fmt22s, false},
	OpRsubInt:           {OpRsubInt, "rsub-int", Fmt22s, false},
	OpMulIntLit16:       {OpMulIntLit16, "mul-int/lit16", Fmt22s, false},
	OpDivIntLit16:       {OpDivIntLit16, "div-int/lit16", Fmt22s, true},
	OpRemIntLit16:       {OpRemIntLit16, "rem-int/lit16", Fmt22s, true},
	OpAndIntLit16:       {OpAndIntLit16, "and-int/lit16", Fmt22s, false},
	OpOrIntLit16:        {OpOrIntLit16, "or-int/lit16", Fmt22s, false},
	OpXorIntLit16:       {OpXorIntLit16, "xor-int/lit16", Fmt22s, false},
	OpAddIntLit8:        {OpAddIntLit8, "add-int/lit8", Fmt22b, false},
	OpRsubIntLit8:       {OpRsubIntLit8, "rsub-int/lit8", Fmt22b, false},
	OpMulIntLit8:        {OpMulIntLit8, "mul-int/lit8", Fmt22b, false},
	OpDivIntLit8:        {OpDivIntLit8, "div-int/lit8", Fmt22b, true},
	OpRemIntLit8:        {OpRemIntLit8, "rem-int/lit8", Fmt22b, true},
	OpAndIntLit8:        {OpAndIntLit8, "and-int/lit8", Fmt22b, false},
	OpOrIntLit8:         {OpOrIntLit8, "or-int/lit8", Fmt22b, false},
	OpXorIntLit8:        {OpXorIntLit8, "xor-int/lit8", Fmt22b, false},
	OpShlIntLit8:        {OpShlIntLit8, "shl-int/lit8", Fmt22b, false},
	OpShrIntLit8:        {OpShrIntLit8, "shr-int/lit8", Fmt22b, false},
	OpUshrIntLit8:       {OpUshrIntLit8, "ushr-int/lit8", Fmt22b, false},
}

// lookupOp resolves an opcode id to its table row.
func lookupOp(op uint16) (OpInfo, bool) {
	info, ok := opTable[op]
	return info, ok
}

// isInvoke reports whether op is any invoke-family opcode (virtual,
// super, direct, static, interface, the /range variants, or
// polymorphic/custom).
func isInvoke(op uint16) bool {
	switch op {
	case OpInvokeVirtual, OpInvokeSuper, OpInvokeDirect, OpInvokeStatic, OpInvokeInterface,
		OpInvokeVirtualRange, OpInvokeSuperRange, OpInvokeDirectRange, OpInvokeStaticRange,
		OpInvokeInterfaceRange, OpInvokePolymorphic, OpInvokePolymorphicRange,
		OpInvokeCustom, OpInvokeCustomRange:
		return true
	}
	return false
}

// isRangeInvoke reports whether op is a /range or /polymorphic-range or
// /custom-range invoke, i.e. takes a contiguous register span instead of
// an explicit vC..vG list.
func isRangeInvoke(op uint16) bool {
	switch op {
	case OpInvokeVirtualRange, OpInvokeSuperRange, OpInvokeDirectRange, OpInvokeStaticRange,
		OpInvokeInterfaceRange, OpInvokePolymorphicRange, OpInvokeCustomRange:
		return true
	}
	return false
}

// isInstanceFieldGet / isInstanceFieldPut / isStaticFieldGet /
// isStaticFieldPut classify the width-typed field-accessor
// families referenced by the callgraph's zombie scan and the patcher's
// replacement table.
func isInstanceFieldGet(op uint16) bool {
	return op >= OpIget && op <= OpIgetShort
}
func isInstanceFieldPut(op uint16) bool {
	return op >= OpIput && op <= OpIputShort
}
func isStaticFieldGet(op uint16) bool {
	return op >= OpSget && op <= OpSgetShort
}
func isStaticFieldPut(op uint16) bool {
	return op >= OpSput && op <= OpSputShort
}

// isWideAccessor reports whether a field-accessor opcode is the
// 64-bit-width variant of its family (iget-wide/sget-wide and their
// iput/sput counterparts).
func isWideAccessor(op uint16) bool {
	switch op {
	case OpIgetWide, OpIputWide, OpSgetWide, OpSputWide:
		return true
	}
	return false
}

// isObjectAccessor reports whether a field-accessor opcode is the
// object-typed variant (iget-object/sget-object and their iput/sput
// counterparts) — the only accessors that add a nullability edge in the
// information-flow analysis.
func isObjectAccessor(op uint16) bool {
	switch op {
	case OpIgetObject, OpIputObject, OpSgetObject, OpSputObject:
		return true
	}
	return false
}

// isClassRef reports whether op embeds a type-table reference whose
// resolution failure makes the instruction a zombie root: ConstClass,
// CheckCast, InstanceOf, NewInstance, NewArray, and the two
// FilledNewArray forms.
func isClassRef(op uint16) bool {
	switch op {
	case OpConstClass, OpCheckCast, OpInstanceOf, OpNewInstance, OpNewArray,
		OpFilledNewArray, OpFilledNewArrayRange:
		return true
	}
	return false
}

// IsInvoke reports whether op is any invoke-family opcode. Exported for
// the callgraph and information-flow packages, which must classify
// instructions the same way the root package's own CFG builder does.
func IsInvoke(op uint16) bool { return isInvoke(op) }

// IsRangeInvoke reports whether op takes a contiguous vCCCC..vNNNN
// register span instead of an explicit vC..vG list.
func IsRangeInvoke(op uint16) bool { return isRangeInvoke(op) }

// IsInstanceFieldGet, IsInstanceFieldPut, IsStaticFieldGet and
// IsStaticFieldPut classify the width-typed field-accessor families;
// exported for cross-package use by callgraph and flow.
func IsInstanceFieldGet(op uint16) bool { return isInstanceFieldGet(op) }
func IsInstanceFieldPut(op uint16) bool { return isInstanceFieldPut(op) }
func IsStaticFieldGet(op uint16) bool   { return isStaticFieldGet(op) }
func IsStaticFieldPut(op uint16) bool   { return isStaticFieldPut(op) }

// IsWideAccessor and IsObjectAccessor classify a field accessor's
// operand width; exported for flow's nullability-edge asymmetry and the
// callgraph patcher's replacement table.
func IsWideAccessor(op uint16) bool   { return isWideAccessor(op) }
func IsObjectAccessor(op uint16) bool { return isObjectAccessor(op) }

// IsClassRef reports whether op embeds a type-table reference.
func IsClassRef(op uint16) bool { return isClassRef(op) }
