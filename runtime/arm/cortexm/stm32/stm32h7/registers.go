package stm32h7

// Bus matrix base addresses, ascending.
const (
	D2APB1PeriphBase uintptr = 0x40000000
	D2APB2PeriphBase uintptr = 0x40010000
	D2AHB1PeriphBase uintptr = 0x40020000
	D2AHB2PeriphBase uintptr = 0x48020000
	D1APB1PeriphBase uintptr = 0x50000000
	D1AHB1PeriphBase uintptr = 0x52000000
	D3APB1PeriphBase uintptr = 0x58000000
	D3AHB1PeriphBase uintptr = 0x58020000
)

const (
	FlashBank1Base uintptr = 0x08000000
	// SystemMemoryBase holds the stack pointer and reset vector of the ROM
	// bootloader.
	SystemMemoryBase uintptr = 0x1FF09800

	AXISRAMBase uintptr = 0x24000000
	AXISRAMSize uintptr = 512 * 1024
)

// Peripheral base addresses.
const (
	TIM2Base    = D2APB1PeriphBase + 0x0000
	USART2Base  = D2APB1PeriphBase + 0x4400
	I2C1Base    = D2APB1PeriphBase + 0x5400
	TIM1Base    = D2APB2PeriphBase + 0x0000
	USART1Base  = D2APB2PeriphBase + 0x1000
	SPI1Base    = D2APB2PeriphBase + 0x3000
	DMA1Base    = D2AHB1PeriphBase + 0x0000
	DMA2Base    = D2AHB1PeriphBase + 0x0400
	ADC1Base    = D2AHB1PeriphBase + 0x2000
	ADC2Base    = D2AHB1PeriphBase + 0x2100
	ADC12Common = D2AHB1PeriphBase + 0x2300
	USB1Base    = D2AHB1PeriphBase + 0x20000
	DCMIBase    = D2AHB2PeriphBase + 0x0000
	RNGBase     = D2AHB2PeriphBase + 0x1800
	LTDCBase    = D1APB1PeriphBase + 0x1000
	WWDG1Base   = D1APB1PeriphBase + 0x3000
	MDMABase    = D1AHB1PeriphBase + 0x0000
	FlashRBase  = D1AHB1PeriphBase + 0x2000
	FMCBase     = D1AHB1PeriphBase + 0x4000
	EXTIBase    = D3APB1PeriphBase + 0x0000
	SYSCFGBase  = D3APB1PeriphBase + 0x0400
	LPUART1Base = D3APB1PeriphBase + 0x0C00
	GPIOABase   = D3AHB1PeriphBase + 0x0000
	GPIOKBase   = D3AHB1PeriphBase + 0x2800
	RCCBase     = D3AHB1PeriphBase + 0x4400
	PWRBase     = D3AHB1PeriphBase + 0x4800
	ADC3Base    = D3AHB1PeriphBase + 0x6000
	ADC3Common  = D3AHB1PeriphBase + 0x6300
	BDMABase    = D3AHB1PeriphBase + 0x5400
)

// GPIOStride is the distance between consecutive GPIO ports.
const GPIOStride uintptr = 0x400

// RCC register offsets.
const (
	RCC_CR        uintptr = 0x000
	RCC_CFGR      uintptr = 0x010
	RCC_D1CFGR    uintptr = 0x018
	RCC_D2CFGR    uintptr = 0x01C
	RCC_D3CFGR    uintptr = 0x020
	RCC_PLLCKSELR uintptr = 0x028
	RCC_PLLCFGR   uintptr = 0x02C
	RCC_PLL1DIVR  uintptr = 0x030
	RCC_PLL1FRACR uintptr = 0x034
	RCC_D3CCIPR   uintptr = 0x058
	RCC_CIER      uintptr = 0x060
	RCC_AHB3ENR   uintptr = 0x0D4
	RCC_AHB1ENR   uintptr = 0x0D8
	RCC_AHB2ENR   uintptr = 0x0DC
	RCC_AHB4ENR   uintptr = 0x0E0
	RCC_APB3ENR   uintptr = 0x0E4
	RCC_APB1LENR  uintptr = 0x0E8
	RCC_APB1HENR  uintptr = 0x0EC
	RCC_APB2ENR   uintptr = 0x0F0
	RCC_APB4ENR   uintptr = 0x0F4
)

// RCC_CR bits.
const (
	RCC_CR_HSION    = 0x1 << 0
	RCC_CR_HSIRDY   = 0x1 << 2
	RCC_CR_CSION    = 0x1 << 7
	RCC_CR_HSI48ON  = 0x1 << 12
	RCC_CR_HSEON    = 0x1 << 16
	RCC_CR_HSERDY   = 0x1 << 17
	RCC_CR_HSEBYP   = 0x1 << 18
	RCC_CR_HSECSSON = 0x1 << 19
	RCC_CR_PLL1ON   = 0x1 << 24
	RCC_CR_PLL1RDY  = 0x1 << 25
	RCC_CR_PLL2ON   = 0x1 << 26
	RCC_CR_PLL3ON   = 0x1 << 28

	// Bits kept by SystemInit when it stops the oscillators and PLLs.
	rccCRResetMask = 0xEAF6ED7F
)

// RCC_CFGR fields.
const (
	RCC_CFGR_SW_Pos  = 0
	RCC_CFGR_SW_Msk  = 0x7
	RCC_CFGR_SWS_Pos = 3
	RCC_CFGR_SWS_Msk = 0x7 << RCC_CFGR_SWS_Pos

	RCC_CFGR_SW_HSI  = 0
	RCC_CFGR_SW_PLL1 = 3
)

// Domain prescaler fields. Every prescaler here is programmed to divide by 2.
const (
	RCC_D1CFGR_HPRE_Pos    = 0
	RCC_D1CFGR_HPRE_Msk    = 0xF
	RCC_D1CFGR_HPRE_DIV2   = 0x8
	RCC_D1CFGR_D1PPRE_Pos  = 4
	RCC_D2CFGR_D2PPRE1_Pos = 4
	RCC_D2CFGR_D2PPRE2_Pos = 8
	RCC_D3CFGR_D3PPRE_Pos  = 4
	RCC_PPRE_Msk           = 0x7
	RCC_PPRE_DIV2          = 0x4
)

// PLL selection and configuration fields.
const (
	RCC_PLLCKSELR_PLLSRC_Pos = 0
	RCC_PLLCKSELR_PLLSRC_Msk = 0x3
	RCC_PLLCKSELR_PLLSRC_HSI = 0
	RCC_PLLCKSELR_PLLSRC_HSE = 2
	RCC_PLLCKSELR_DIVM1_Pos  = 4
	RCC_PLLCKSELR_DIVM1_Msk  = 0x3F

	RCC_PLLCFGR_PLL1RGE_Pos = 2
	RCC_PLLCFGR_PLL1RGE_Msk = 0x3
	RCC_PLLCFGR_PLL1RGE_2_4 = 1
	RCC_PLLCFGR_PLL1VCOSEL  = 0x1 << 1
	RCC_PLLCFGR_DIVP1EN     = 0x1 << 16
	RCC_PLLCFGR_DIVQ1EN     = 0x1 << 17
	RCC_PLLCFGR_DIVR1EN     = 0x1 << 18

	RCC_PLL1DIVR_N1_Pos = 0
	RCC_PLL1DIVR_P1_Pos = 9
	RCC_PLL1DIVR_Q1_Pos = 16
	RCC_PLL1DIVR_R1_Pos = 24
)

// Reset values restored by SystemInit.
const (
	rccPLLCKSELRReset = 0x02020200
	rccPLLCFGRReset   = 0x01FF0000
	rccPLL1DIVRReset  = 0x01010280
)

// RCC_D3CCIPR ADC kernel clock selection.
const (
	RCC_D3CCIPR_ADCSEL_Pos   = 16
	RCC_D3CCIPR_ADCSEL_Msk   = 0x3
	RCC_D3CCIPR_ADCSEL_PERCK = 0x2
)

// FLASH registers.
const (
	FLASH_ACR             uintptr = 0x000
	FLASH_ACR_LATENCY_Pos         = 0
	FLASH_ACR_LATENCY_Msk         = 0xF

	// FLASH_ACR_LATENCY_7WS is enough for every supported core frequency.
	FLASH_ACR_LATENCY_7WS = 7
)
