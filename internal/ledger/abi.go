package ledger

// contractABI is the subset of the property contract's ABI this adapter
// touches: the counter, ownership and detail getters, the three write
// operations and the events their receipts carry.
const contractABI = `[
  {"type":"function","name":"getTokenCounter","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"ownerOf","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"getPropertyDetails","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"title","type":"string"},{"name":"location","type":"string"},{"name":"price","type":"uint256"},{"name":"owner","type":"address"},{"name":"isListed","type":"bool"}]},
  {"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"mintProperty","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"title","type":"string"},{"name":"location","type":"string"},{"name":"price","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"listPropertyForSale","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"},{"name":"price","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"buyProperty","stateMutability":"payable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
  {"type":"event","name":"PropertyMinted","inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"owner","type":"address","indexed":true},{"name":"price","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"PropertyListed","inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"owner","type":"address","indexed":true},{"name":"price","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"PropertySold","inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"seller","type":"address","indexed":true},{"name":"buyer","type":"address","indexed":true},{"name":"price","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"tokenId","type":"uint256","indexed":true}],"anonymous":false}
]`
