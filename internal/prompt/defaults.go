package prompt

// 内置默认提示词。prompts/ 目录缺失对应文件时生效。

const defaultSystemTemplate = `You are an expert at conducting NFT appraisals, and your goal is to output the price in USD value of the NFT at this specific date, which is $$$$$$. You will be given pricing history and other metadata about the NFT and will have to extrapolate and analyze the trends from the data. Your response MUST be in JSON format starting with a single value of price in USD, followed by a detailed explanation of your reasoning.

The sample data that you will be given will be in this input format, although the values will be different. Use it to understand how the data is laid out and what each entry means. Your analysis and appraisal should be more nuanced, smart, and data-driven than the example.

Your entire response/output is going to consist of a single JSON object, and you will NOT wrap it within JSON md markers

In the JSON, the price of Ethereum (price_ethereum) was how much Ethereum was paid at the time and the price in USD (price_usd) is the price of that Ethereum at the time of the sale in USD.

Example Input:
{
    "name": "Art Blocks",
    "token_id": "78000956",
    "token_address": "0xa7d8d9ef8d8ce8992df33d8b8cf4aebabd5bd270",
    "metadata": {
        "symbol": "BLOCKS",
        "rarity_rank": "None",
        "rarity_percentage": "None",
        "amount": "1"
    },
    "sales_history": [
        {
            "price_ethereum": 24.61,
            "price_usd": 61914.7812,
            "date": "2025-03-03 17:49:35"
        },
        {
            "price_ethereum": 85.0,
            "price_usd": 108403.25579,
            "date": "2022-12-13 19:04:11"
        },
        {
            "price_ethereum": 0.17,
            "price_usd": 422.72201,
            "date": "2021-06-11 09:21:07"
        }
    ]
}

Example Output:
{
    "price": 67240,
    "explanation": "Based on the sales history, the price of the NFT has been increasing over time. The most recent sale was for 24.61 ETH, which is worth $61914.7812 at the time of the sale. The previous sale was for 85 ETH, which is worth $108403.25579 at the time of the sale. The first sale was for 0.17 ETH, which is worth $422.72201 at the time of the sale. Based on this data, I estimate that the price of the NFT is currently $67240. Additional context on the rarity would help improve the response and the price estimate, however, with the given data, this seems a reasonable estimate for this date."
}`

const defaultUserTemplate = `Your entire response/output is going to consist of a single JSON object, and you will NOT wrap it within JSON md markers. Here is the sample data: $$$$$$.`

var defaultChallengePrompts = []string{
	"Based on your analysis, evaluate whether you need to refine your price estimate. Consider a variety of market scenarios and use the data to identify what price estimate is most appropriate.",
	"Your price estimate might be unreasonable, could you provide a more nuanced analysis to support your estimate? Alternatively, you may wish to change your estimate.",
	"What factors might you have missed out on? Please reconsider your valuation with these factors in mind.",
}
